package admin_controller

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joy095/academy/badwords"
	"github.com/joy095/academy/clients"
	"github.com/joy095/academy/handlers/image_handlers"
	"github.com/joy095/academy/logger"
	"github.com/joy095/academy/models/session_models"
	"github.com/joy095/academy/utils"
	"github.com/joy095/academy/utils/age_group"
)

// AdminBackend is the role-gated part of the backend.
type AdminBackend interface {
	AdminDo(ctx context.Context, sess *session_models.Session, method, resource, id string, query url.Values, body any) (json.RawMessage, error)
	UploadMedia(ctx context.Context, sess *session_models.Session, body *clients.Multipart) (json.RawMessage, error)
}

// Resources the console may manage.
var resources = map[string]bool{
	"settings":     true,
	"players":      true,
	"fee-plans":    true,
	"attendance":   true,
	"gallery":      true,
	"facilities":   true,
	"testimonials": true,
	"news":         true,
	"team":         true,
	"sliders":      true,
	"summer-camps": true,
	"enquiries":    true,
}

type WordRequest struct {
	Word string `json:"word" binding:"required"`
}

// AdminController proxies the admin console to the backend.
type AdminController struct {
	Backend AdminBackend
	Filter  *badwords.Filter
	Now     func() time.Time
}

// NewAdminController creates a new AdminController
func NewAdminController(backend AdminBackend, filter *badwords.Filter) *AdminController {
	return &AdminController{Backend: backend, Filter: filter, Now: time.Now}
}

// resource resolves :resource and the session, writing the error response itself.
func (ac *AdminController) resource(c *gin.Context) (string, *session_models.Session, bool) {
	name := c.Param("resource")
	if !resources[name] {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"code": "NOT_FOUND", "error": "Unknown admin resource"})
		return "", nil, false
	}
	sess, err := utils.GetSessionFromContext(c)
	if err != nil {
		utils.RespondError(c, err)
		return "", nil, false
	}
	return name, sess, true
}

// List returns every record of a resource. Players are labelled with their age
// group and may be filtered with ?ageGroup=.
func (ac *AdminController) List(c *gin.Context) {
	name, sess, ok := ac.resource(c)
	if !ok {
		return
	}

	query := c.Request.URL.Query()
	group := query.Get("ageGroup")
	if name == "players" {
		if group != "" && !age_group.IsLabel(group) {
			c.JSON(http.StatusBadRequest, gin.H{"code": "VALIDATION_ERROR", "error": "Unknown age group"})
			return
		}
		query.Del("ageGroup")
	}

	raw, err := ac.Backend.AdminDo(c.Request.Context(), sess, http.MethodGet, name, "", query, nil)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	if name != "players" {
		c.JSON(http.StatusOK, gin.H{name: raw})
		return
	}

	players, err := age_group.LabelPlayers(raw, ac.Now(), group)
	if err != nil {
		logger.ErrorLogger.Errorf("Admin players payload: %v", err)
		utils.RespondError(c, clients.ErrNetwork)
		return
	}
	c.JSON(http.StatusOK, gin.H{"players": players, "ageGroups": age_group.Labels()})
}

func (ac *AdminController) Get(c *gin.Context) {
	name, sess, ok := ac.resource(c)
	if !ok {
		return
	}
	raw, err := ac.Backend.AdminDo(c.Request.Context(), sess, http.MethodGet, name, c.Param("id"), nil, nil)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", raw)
}

func (ac *AdminController) Create(c *gin.Context) {
	ac.write(c, http.MethodPost, "", http.StatusCreated)
}

func (ac *AdminController) Update(c *gin.Context) {
	ac.write(c, c.Request.Method, c.Param("id"), http.StatusOK)
}

func (ac *AdminController) Delete(c *gin.Context) {
	name, sess, ok := ac.resource(c)
	if !ok {
		return
	}
	if _, err := ac.Backend.AdminDo(c.Request.Context(), sess, http.MethodDelete, name, c.Param("id"), nil, nil); err != nil {
		utils.RespondError(c, err)
		return
	}
	logger.InfoLogger.Infof("Admin deleted %s/%s", name, c.Param("id"))
	c.JSON(http.StatusOK, gin.H{"message": "Deleted successfully"})
}

// write forwards a JSON object body unchanged.
func (ac *AdminController) write(c *gin.Context, method, id string, status int) {
	name, sess, ok := ac.resource(c)
	if !ok {
		return
	}

	var body map[string]any
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.BindError(c, err)
		return
	}

	raw, err := ac.Backend.AdminDo(c.Request.Context(), sess, method, name, id, nil, body)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	logger.InfoLogger.Infof("Admin %s %s/%s", method, name, id)
	c.Data(status, "application/json; charset=utf-8", orEmptyObject(raw))
}

// UploadMedia forwards an image upload to the media library.
func (ac *AdminController) UploadMedia(c *gin.Context) {
	sess, err := utils.GetSessionFromContext(c)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	body, err := image_handlers.ReadImageUpload(c)
	if err != nil {
		image_handlers.HandleFileError(c, err)
		return
	}

	raw, err := ac.Backend.UploadMedia(c.Request.Context(), sess, body)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.Data(http.StatusCreated, "application/json; charset=utf-8", orEmptyObject(raw))
}

// ListWords returns the moderation word list.
func (ac *AdminController) ListWords(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"words": ac.Filter.List()})
}

func (ac *AdminController) AddWord(c *gin.Context) {
	var req WordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BindError(c, err)
		return
	}
	if err := ac.Filter.Add(req.Word); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "VALIDATION_ERROR", "error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Word added"})
}

func (ac *AdminController) RemoveWord(c *gin.Context) {
	if !ac.Filter.Remove(c.Param("word")) {
		c.JSON(http.StatusNotFound, gin.H{"code": "NOT_FOUND", "error": "Word not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Word removed"})
}

// CheckText lets moderators test a text against the list.
func (ac *AdminController) CheckText(c *gin.Context) {
	var req badwords.CheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BindError(c, err)
		return
	}
	c.JSON(http.StatusOK, ac.Filter.Check(req.Text))
}

func orEmptyObject(raw json.RawMessage) []byte {
	if len(raw) == 0 || string(raw) == "null" {
		return []byte("{}")
	}
	return raw
}
