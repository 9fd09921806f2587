package webserver

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/notemoire/sociva/src/api/types"
)

type Profiles struct {
	db *gorm.DB
}

func NewProfiles(db *gorm.DB) Profiles { return Profiles{db: db} }

// Login upserts the profile for the authenticated wallet. First-time wallets
// get a fallback display name derived from the address tail.
func (p Profiles) Login(c *gin.Context) {
	addr := strings.ToLower(c.GetString("addr"))

	var prof types.Profile
	err := p.db.First(&prof, "address = ?", addr).Error
	if err == gorm.ErrRecordNotFound {
		prof = types.Profile{
			Address: addr,
			Name:    "User " + tail(addr, 4),
		}
		err = p.db.Create(&prof).Error
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}
	c.JSON(http.StatusOK, prof)
}

func (p Profiles) Get(c *gin.Context) {
	addr := strings.ToLower(c.Param("addr"))

	var prof types.Profile
	if err := p.db.First(&prof, "address = ?", addr).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"err": "profile not found"})
		return
	}
	c.JSON(http.StatusOK, prof)
}

// Update writes the caller's own profile fields. The address key comes from
// the JWT, never from the request body.
func (p Profiles) Update(c *gin.Context) {
	var req types.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}

	addr := strings.ToLower(c.GetString("addr"))
	prof := types.Profile{
		Address:   addr,
		Name:      req.Name,
		Bio:       req.Bio,
		AvatarURL: req.AvatarURL,
		Location:  req.Location,
		Website:   req.Website,
	}
	if err := p.db.Save(&prof).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}
	c.JSON(http.StatusOK, prof)
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
