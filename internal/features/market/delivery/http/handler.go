package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pixellar-backend/internal/features/market/models"
	"pixellar-backend/internal/features/market/service"
)

type MarketHandler struct {
	service service.MarketService
}

func NewMarketHandler(service service.MarketService) *MarketHandler {
	return &MarketHandler{
		service: service,
	}
}

func (h *MarketHandler) RegisterRoutes(router *gin.RouterGroup) {
	artworks := router.Group("/artworks")
	{
		artworks.POST("", h.createArtwork)
		artworks.GET("", h.listArtworks)
		artworks.GET("/:id", h.getArtwork)
		artworks.POST("/:id/publish", h.publish)
		artworks.POST("/:id/unlock", h.unlock)
		artworks.POST("/:id/like", h.like)
	}

	router.GET("/unlocked", h.listUnlocked)
}

// @Summary Create artwork draft
// @Description Save a new pixel-art draft for the connected wallet
// @Tags artworks
// @Accept json
// @Produce json
// @Param artwork body models.CreateArtworkRequest true "Artwork draft"
// @Success 201 {object} models.Artwork "Created artwork"
// @Failure 400 {object} map[string]string "Invalid request"
// @Failure 401 {object} map[string]string "Wallet not connected"
// @Router /artworks [post]
func (h *MarketHandler) createArtwork(c *gin.Context) {
	var req models.CreateArtworkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	artwork, err := h.service.CreateArtwork(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, artwork)
}

// @Summary List artworks
// @Description List artworks, optionally only published ones or by creator
// @Tags artworks
// @Produce json
// @Param published query bool false "Only published artworks"
// @Param creator query string false "Filter by creator wallet address"
// @Success 200 {array} models.Artwork "Artworks"
// @Router /artworks [get]
func (h *MarketHandler) listArtworks(c *gin.Context) {
	publishedOnly := c.Query("published") == "true"
	creator := c.Query("creator")

	artworks, err := h.service.ListArtworks(c.Request.Context(), publishedOnly, creator)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if artworks == nil {
		artworks = []*models.Artwork{}
	}

	c.JSON(http.StatusOK, artworks)
}

// @Summary Get artwork
// @Tags artworks
// @Produce json
// @Param id path string true "Artwork ID"
// @Success 200 {object} models.Artwork "Artwork"
// @Failure 404 {object} map[string]string "Artwork not found"
// @Router /artworks/{id} [get]
func (h *MarketHandler) getArtwork(c *gin.Context) {
	artwork, err := h.service.GetArtwork(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, artwork)
}

// @Summary Publish artwork
// @Description Publish a draft: charges the tier fee via the wallet ledger and mirrors the artwork to the backend
// @Tags artworks
// @Accept json
// @Produce json
// @Param id path string true "Artwork ID"
// @Param publish body models.PublishRequest true "Publish settings"
// @Success 200 {object} models.Artwork "Published artwork"
// @Failure 402 {object} map[string]string "Insufficient balance"
// @Failure 403 {object} map[string]string "Not the creator"
// @Router /artworks/{id}/publish [post]
func (h *MarketHandler) publish(c *gin.Context) {
	var req models.PublishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	artwork, err := h.service.Publish(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, artwork)
}

// @Summary Unlock artwork tier
// @Description Pay for an access tier of a published artwork via the wallet ledger
// @Tags artworks
// @Accept json
// @Produce json
// @Param id path string true "Artwork ID"
// @Param unlock body models.UnlockRequest true "Tier to unlock"
// @Success 200 {object} models.UnlockedItem "Unlocked access"
// @Failure 402 {object} map[string]string "Insufficient balance"
// @Router /artworks/{id}/unlock [post]
func (h *MarketHandler) unlock(c *gin.Context) {
	var req models.UnlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	item, err := h.service.Unlock(c.Request.Context(), c.Param("id"), req.Tier)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, item)
}

// @Summary Like artwork
// @Tags artworks
// @Produce json
// @Param id path string true "Artwork ID"
// @Success 200 {object} map[string]int64 "Updated like count"
// @Router /artworks/{id}/like [post]
func (h *MarketHandler) like(c *gin.Context) {
	likes, err := h.service.Like(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"likes": likes})
}

// @Summary List unlocked items
// @Description List the tiers the connected wallet has unlocked
// @Tags artworks
// @Produce json
// @Success 200 {array} models.UnlockedItem "Unlocked items"
// @Failure 401 {object} map[string]string "Wallet not connected"
// @Router /unlocked [get]
func (h *MarketHandler) listUnlocked(c *gin.Context) {
	items, err := h.service.ListUnlocked(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	if items == nil {
		items = []models.UnlockedItem{}
	}

	c.JSON(http.StatusOK, items)
}
