package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"noticeboard/internal/api"
	"noticeboard/internal/session"

	"github.com/spf13/cobra"
)

// newRootCmd builds the command tree. build is called lazily so that --help works
// without a valid configuration.
func newRootCmd(build func() (*app, error)) *cobra.Command {
	root := &cobra.Command{
		Use:           "noticeboard",
		Short:         "Command-line client for the notice board",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	var a *app
	load := func() (*app, error) {
		if a != nil {
			return a, nil
		}
		var err error
		a, err = build()
		return a, err
	}

	root.AddCommand(
		newLoginCmd(load),
		newRegisterCmd(load),
		newProfileCmd(load),
		newLogoutCmd(load),
		newWhoamiCmd(load),
	)
	return root
}

type loader func() (*app, error)

func newLoginCmd(load loader) *cobra.Command {
	var email, username, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := load()
			if err != nil {
				return err
			}

			creds := map[string]string{"password": passwordOrEnv(password)}
			if email != "" {
				creds["email"] = email
			}
			if username != "" {
				creds["username"] = username
			}

			if _, err := a.manager.Login(cmd.Context(), creds); err != nil {
				return err
			}
			return printSession(cmd.OutOrStdout(), a.manager)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&username, "username", "", "account username")
	cmd.Flags().StringVar(&password, "password", "", "account password (default $NOTICEBOARD_PASSWORD)")
	cmd.MarkFlagsOneRequired("email", "username")
	return cmd
}

func newRegisterCmd(load loader) *cobra.Command {
	var email, username, password, image string
	var fields []string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := load()
			if err != nil {
				return err
			}

			form, err := parseFields(fields)
			if err != nil {
				return err
			}
			form["email"] = email
			form["username"] = username
			form["password"] = passwordOrEnv(password)

			body, err := withImage(form, image)
			if err != nil {
				return err
			}

			resp, err := a.manager.Register(cmd.Context(), body)
			if err != nil {
				return err
			}
			if !a.manager.IsAuthenticated() {
				if payload, ok := resp.(api.Payload); ok {
					if detail, ok := payload["detail"].(string); ok {
						fmt.Fprintln(cmd.OutOrStdout(), detail)
					}
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Account created; run `noticeboard login` to sign in.")
				return nil
			}
			return printSession(cmd.OutOrStdout(), a.manager)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&username, "username", "", "account username")
	cmd.Flags().StringVar(&password, "password", "", "account password (default $NOTICEBOARD_PASSWORD)")
	cmd.Flags().StringArrayVar(&fields, "set", nil, "extra profile field as key=value (repeatable)")
	cmd.Flags().StringVar(&image, "image", "", "profile image file to upload")
	cmd.MarkFlagRequired("email")
	cmd.MarkFlagRequired("username")
	return cmd
}

func newProfileCmd(load loader) *cobra.Command {
	var cached bool

	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show the current user's profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := load()
			if err != nil {
				return err
			}
			if !cached {
				if _, err := a.manager.FetchProfile(cmd.Context()); err != nil {
					return err
				}
			}
			return printJSON(cmd.OutOrStdout(), a.manager.CurrentUser())
		},
	}
	cmd.Flags().BoolVar(&cached, "cached", false, "show the stored profile without contacting the server")

	var fields []string
	var image string
	update := &cobra.Command{
		Use:   "update",
		Short: "Update profile fields",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := load()
			if err != nil {
				return err
			}

			form, err := parseFields(fields)
			if err != nil {
				return err
			}
			if len(form) == 0 && image == "" {
				return errors.New("nothing to update: pass --image or at least one --set key=value")
			}

			body, err := withImage(form, image)
			if err != nil {
				return err
			}
			if _, err := a.manager.UpdateProfile(cmd.Context(), body); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), a.manager.CurrentUser())
		},
	}
	update.Flags().StringArrayVar(&fields, "set", nil, "profile field as key=value (repeatable)")
	update.Flags().StringVar(&image, "image", "", "profile image file to upload")

	cmd.AddCommand(update)
	return cmd
}

func newLogoutCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := load()
			if err != nil {
				return err
			}
			a.manager.Logout()
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
			return nil
		},
	}
}

func newWhoamiCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Print the stored session state",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := load()
			if err != nil {
				return err
			}
			return printSession(cmd.OutOrStdout(), a.manager)
		},
	}
}

func printSession(w io.Writer, m session.Manager) error {
	if !m.IsAuthenticated() {
		fmt.Fprintln(w, "Not logged in.")
		return nil
	}

	user := m.CurrentUser()
	name := user.String("username")
	if name == "" {
		name = user.ID()
	}
	if name == "" {
		fmt.Fprintln(w, "Logged in.")
		return nil
	}
	fmt.Fprintf(w, "Logged in as %s.\n", name)
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// parseFields turns key=value pairs into a form
func parseFields(pairs []string) (map[string]any, error) {
	form := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid field %q: expected key=value", pair)
		}
		form[key] = value
	}
	return form, nil
}

// withImage returns form unchanged when no image is given, else a multipart form with
// the file attached as profile_image
func withImage(form map[string]any, path string) (any, error) {
	if path == "" {
		return form, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}

	fields := make(map[string]string, len(form))
	for k, v := range form {
		fields[k] = fmt.Sprint(v)
	}
	upload := api.NewForm(fields)
	upload.AddFile("profile_image", filepath.Base(path), data)
	return upload, nil
}

func passwordOrEnv(flag string) string {
	if flag != "" {
		return flag
	}
	return os.Getenv("NOTICEBOARD_PASSWORD")
}
