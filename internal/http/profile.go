package http

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/mrlokans/plibrary/internal/auth"
	"github.com/mrlokans/plibrary/internal/profile"
)

type ProfileController struct {
	profiles ProfileService
	recorder CatalogRecorder
	pages    *pages
	log      logrus.FieldLogger
}

// NewProfileController creates a ProfileController. recorder may be nil.
func NewProfileController(profiles ProfileService, recorder CatalogRecorder, log logrus.FieldLogger) *ProfileController {
	return &ProfileController{
		profiles: profiles,
		recorder: recorder,
		pages:    &pages{profiles: profiles},
		log:      log,
	}
}

// CreatePage handles GET /profile/create, pre-filling the known age.
func (pc *ProfileController) CreatePage(c *gin.Context) {
	value := ""
	if e := pc.profiles.Context(auth.CurrentUser(c)); !e.Empty() {
		value = fmt.Sprint(e.Age)
	}
	pc.renderForm(c, value, "")
}

// Create handles POST /profile/create
func (pc *ProfileController) Create(c *gin.Context) {
	raw := c.PostForm("age")
	age, err := profile.ParseAge(raw)
	if err != nil {
		pc.renderForm(c, raw, err.Error())
		return
	}

	user := auth.CurrentUser(c)
	if user == nil {
		c.Redirect(http.StatusFound, auth.LoginRedirectURL(c.Request.URL))
		return
	}

	_, err = pc.profiles.CreateProfile(user, age)
	if pc.recorder != nil {
		pc.recorder.LogProfile(user.ID, fmt.Sprintf("Age set to %d", age), err)
	}
	if err != nil {
		respondStorageError(c, pc.log, err, "create profile")
		return
	}

	c.Redirect(http.StatusFound, "/")
}

func (pc *ProfileController) renderForm(c *gin.Context, age, formError string) {
	pc.pages.render(c, http.StatusOK, "profile_create", gin.H{
		"Title":     "Profile",
		"FormAge":   age,
		"FormError": formError,
	})
}
