package devserver

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

// imageField is the multipart file field carrying a profile image
const imageField = "profile_image"

// upload is a file received in a multipart form
type upload struct {
	data        []byte
	contentType string
}

// parseError is a request body that could not be read, rendered in DRF's wording
type parseError struct {
	kind string
	err  error
}

func (e *parseError) Error() string {
	return e.kind + " - " + e.err.Error()
}

func (e *parseError) Unwrap() error {
	return e.err
}

// bindForm reads a JSON, urlencoded or multipart body into a field map. A profile
// image, when present in a multipart body, is returned separately.
func bindForm(c *gin.Context) (map[string]any, *upload, error) {
	switch c.ContentType() {
	case binding.MIMEMultipartPOSTForm:
		mf, err := c.MultipartForm()
		if err != nil {
			return nil, nil, &parseError{"Multipart form parse error", err}
		}

		form := make(map[string]any, len(mf.Value))
		for key, values := range mf.Value {
			if len(values) > 0 {
				form[key] = values[0]
			}
		}

		headers := mf.File[imageField]
		if len(headers) == 0 {
			return form, nil, nil
		}
		f, err := headers[0].Open()
		if err != nil {
			return nil, nil, &parseError{"Upload a valid image", err}
		}
		defer f.Close()

		data, err := io.ReadAll(f)
		if err != nil {
			return nil, nil, &parseError{"Upload a valid image", err}
		}
		contentType := headers[0].Header.Get("Content-Type")
		if contentType == "" || contentType == "application/octet-stream" {
			contentType = http.DetectContentType(data)
		}
		return form, &upload{data: data, contentType: contentType}, nil

	case binding.MIMEPOSTForm:
		if err := c.Request.ParseForm(); err != nil {
			return nil, nil, &parseError{"Form parse error", err}
		}
		form := make(map[string]any, len(c.Request.PostForm))
		for key := range c.Request.PostForm {
			form[key] = c.Request.PostForm.Get(key)
		}
		return form, nil, nil

	default:
		var form map[string]any
		if err := c.ShouldBindJSON(&form); err != nil {
			return nil, nil, &parseError{"JSON parse error", err}
		}
		return form, nil, nil
	}
}

// registerHandler handles POST /auth/register/
func (s *Server) registerHandler(c *gin.Context) {
	form, image, err := bindForm(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	user, fieldErrs := s.users.create(form)
	if fieldErrs != nil {
		c.JSON(http.StatusBadRequest, fieldErrs)
		return
	}
	if image != nil {
		user = s.users.setImage(user["user_id"].(string), image)
	}

	resp := gin.H{s.cfg.UserField: user}
	if s.cfg.RegisterIssuesToken {
		resp[s.cfg.TokenField] = s.users.issueToken(user["user_id"].(string))
	} else {
		resp["detail"] = "Registration successful. Please log in."
	}

	s.logger.Info("User registered", "user_id", user["user_id"], "request_id", c.GetString("request_id"))
	c.JSON(http.StatusCreated, resp)
}

// loginRequest accepts either email or username as the identifier
type loginRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// loginHandler handles POST /auth/login/
func (s *Server) loginHandler(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "JSON parse error - " + err.Error()})
		return
	}

	identifier := req.Email
	if identifier == "" {
		identifier = req.Username
	}

	fieldErrs := make(map[string][]string)
	if identifier == "" {
		fieldErrs["email"] = []string{"This field is required."}
	}
	if req.Password == "" {
		fieldErrs["password"] = []string{"This field is required."}
	}
	if len(fieldErrs) > 0 {
		c.JSON(http.StatusBadRequest, fieldErrs)
		return
	}

	token, user, err := s.users.authenticate(identifier, req.Password)
	if errors.Is(err, ErrInvalidCredentials) {
		c.JSON(http.StatusBadRequest, gin.H{
			"non_field_errors": []string{"Invalid email or password."},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		s.cfg.TokenField: token,
		s.cfg.UserField:  user,
	})
}

// logoutHandler handles POST /auth/logout/ by revoking the presented token
func (s *Server) logoutHandler(c *gin.Context) {
	s.users.revoke(c.GetString("token"))
	c.JSON(http.StatusOK, gin.H{"detail": "Logged out."})
}

// profileHandler handles GET /auth/profile/
func (s *Server) profileHandler(c *gin.Context) {
	_, user, err := s.users.byToken(c.GetString("token"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or missing token"})
		return
	}
	s.writeProfile(c, user)
}

// updateProfileHandler handles PATCH /auth/profile/ as a partial update
func (s *Server) updateProfileHandler(c *gin.Context) {
	form, image, err := bindForm(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	if email, ok := form["email"]; ok && str(email) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"email": []string{"This field may not be blank."}})
		return
	}

	userID := c.GetString("user_id")
	user := s.users.update(userID, form)
	if image != nil {
		user = s.users.setImage(userID, image)
	}
	s.writeProfile(c, user)
}

// profileImageHandler handles GET /auth/profile/image/:user_id/
func (s *Server) profileImageHandler(c *gin.Context) {
	image, err := s.users.image(c.Param("user_id"))
	if errors.Is(err, ErrUserNotFound) {
		c.String(http.StatusNotFound, "User not found")
		return
	}
	if image == nil {
		c.String(http.StatusNotFound, "Profile image not found")
		return
	}
	c.Data(http.StatusOK, image.contentType, image.data)
}

func (s *Server) writeProfile(c *gin.Context, user map[string]any) {
	if s.cfg.WrapProfile {
		c.JSON(http.StatusOK, gin.H{"user": user})
		return
	}
	c.JSON(http.StatusOK, user)
}

// healthHandler handles GET /health
func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "noticeboard-devserver",
	})
}
