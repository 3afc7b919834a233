package content_controller

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joy095/academy/badwords"
	"github.com/joy095/academy/clients"
	"github.com/joy095/academy/logger"
	"github.com/joy095/academy/utils"
	"github.com/joy095/academy/utils/age_group"
	"golang.org/x/sync/errgroup"
)

// ContentBackend is the anonymous read and enquiry part of the backend.
type ContentBackend interface {
	PublicGet(ctx context.Context, path string, query url.Values) (json.RawMessage, error)
	SubmitEnquiry(ctx context.Context, req clients.EnquiryRequest) error
}

// homeSections are fetched together for the landing page.
var homeSections = []string{"settings", "sliders", "testimonials", "news", "facilities", "team"}

// publicSections may be read one at a time through /content/:section.
var publicSections = map[string]bool{
	"gallery":      true,
	"facilities":   true,
	"testimonials": true,
	"news":         true,
	"team":         true,
	"sliders":      true,
	"summer-camps": true,
	"fee-plans":    true,
}

// ContentController serves the public marketing pages.
type ContentController struct {
	Backend ContentBackend
	Filter  *badwords.Filter
	Now     func() time.Time
}

// NewContentController creates a new ContentController.
func NewContentController(backend ContentBackend, filter *badwords.Filter) *ContentController {
	return &ContentController{Backend: backend, Filter: filter, Now: time.Now}
}

// HomePage fetches every landing-page section concurrently. One failing section
// fails the page.
func (cc *ContentController) HomePage(c *gin.Context) {
	results := make([]json.RawMessage, len(homeSections))

	g, ctx := errgroup.WithContext(c.Request.Context())
	for i, section := range homeSections {
		i, section := i, section
		g.Go(func() error {
			raw, err := cc.Backend.PublicGet(ctx, "/"+section, nil)
			if err != nil {
				logger.ErrorLogger.Errorf("Home page section %s failed: %v", section, err)
				return err
			}
			results[i] = raw
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		utils.RespondError(c, err)
		return
	}

	page := make(gin.H, len(homeSections))
	for i, section := range homeSections {
		page[section] = results[i]
	}
	c.JSON(http.StatusOK, page)
}

// Section returns one public content list (gallery, news, ...).
func (cc *ContentController) Section(c *gin.Context) {
	section := c.Param("section")
	if !publicSections[section] {
		c.JSON(http.StatusNotFound, gin.H{"code": "NOT_FOUND", "error": "Page not found"})
		return
	}

	raw, err := cc.Backend.PublicGet(c.Request.Context(), "/"+section, c.Request.URL.Query())
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{section: raw})
}

// StarPerformers lists featured players with their current age group.
func (cc *ContentController) StarPerformers(c *gin.Context) {
	raw, err := cc.Backend.PublicGet(c.Request.Context(), "/star-performers", nil)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	players, err := age_group.LabelPlayers(raw, cc.Now(), c.Query("ageGroup"))
	if err != nil {
		logger.ErrorLogger.Errorf("Star performers payload: %v", err)
		utils.RespondError(c, clients.ErrNetwork)
		return
	}
	c.JSON(http.StatusOK, gin.H{"players": players, "ageGroups": age_group.Labels()})
}

// SubmitEnquiry forwards a public enquiry after a local language check.
func (cc *ContentController) SubmitEnquiry(c *gin.Context) {
	var req clients.EnquiryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BindError(c, err)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Message = strings.TrimSpace(req.Message)

	if cc.Filter != nil && cc.Filter.Contains(req.Name+" "+req.Message) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"code": "INAPPROPRIATE_LANGUAGE", "error": "Please remove inappropriate language and try again."})
		return
	}

	if err := cc.Backend.SubmitEnquiry(c.Request.Context(), req); err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Thanks! We will get back to you shortly."})
}
