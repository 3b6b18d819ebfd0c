package cardcache

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"cardvault/internal/auth"
	"cardvault/internal/scryfall"
	"cardvault/pkg/models"
)

type Handler struct {
	Cache *Cache
}

func NewHandler(cache *Cache) *Handler {
	return &Handler{Cache: cache}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/cards/lookup", h.lookup)                    // GET /cards/lookup?set=thb&cn=254&name=Forest
	rg.GET("/cards/resolve", h.resolve)                  // GET /cards/resolve?set=thb&cn=254&name=Forest
	rg.GET("/cards/candidates", h.candidates)            // GET /cards/candidates?set=thb&name=Forest
	rg.GET("/cards/unique", h.uniqueByName)              // GET /cards/unique?name=Forest
	rg.GET("/cards/search", h.search)                    // GET /cards/search?q=bolt&set=sta
	rg.GET("/cards/live", h.live)                        // GET /cards/live?set=thb&cn=254
	rg.GET("/cards/oracle/:id", h.oracleByID)            // GET /cards/oracle/:id
	rg.GET("/cards/oracle/:id/prints", h.printsByOracle) // GET /cards/oracle/:id/prints
	rg.GET("/cards/oracle/:id/rulings", h.rulings)       // GET /cards/oracle/:id/rulings
	rg.GET("/sets", h.sets)
	rg.GET("/stats", h.stats)
	rg.GET("/epoch", h.epoch)
}

// RegisterAdminRoutes mounts the mutating surface behind bearer auth.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup, tokens auth.TokenService) {
	rg.POST("/sync", auth.AuthMiddleware(tokens), h.sync)
}

func (h *Handler) lookup(c *gin.Context) {
	if !h.ready(c) {
		return
	}
	p := h.Cache.ExactPrint(c.Query("set"), c.Query("cn"), c.Query("name"))
	if p == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"print":        p,
		"display_name": p.DisplayName(),
		"type_label":   p.TypeLabel(),
		"epoch":        h.Cache.Epoch(),
	})
}

func (h *Handler) resolve(c *gin.Context) {
	if !h.ready(c) {
		return
	}
	set, cn, name := c.Query("set"), c.Query("cn"), c.Query("name")
	oid, ok := h.Cache.Resolve(set, cn, name)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{
			"error":      "not resolved",
			"candidates": h.Cache.Candidates(set, name),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"oracle_id": oid,
		"oracle":    h.Cache.Oracle(oid),
		"epoch":     h.Cache.Epoch(),
	})
}

func (h *Handler) candidates(c *gin.Context) {
	if !h.ready(c) {
		return
	}
	items := h.Cache.Candidates(c.Query("set"), c.Query("name"))
	c.JSON(http.StatusOK, gin.H{"total": len(items), "items": items})
}

func (h *Handler) uniqueByName(c *gin.Context) {
	if !h.ready(c) {
		return
	}
	oid, ok := h.Cache.UniqueOracleByName(c.Query("name"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "name is unknown or ambiguous"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"oracle_id": oid, "oracle": h.Cache.Oracle(oid)})
}

func (h *Handler) search(c *gin.Context) {
	if !h.ready(c) {
		return
	}
	limit := parseInt(c.Query("limit"), 25)
	offset := parseInt(c.Query("offset"), 0)
	items, total := h.Cache.SearchPrints(c.Query("q"), c.Query("set"), limit, offset)
	c.JSON(http.StatusOK, gin.H{
		"total":  total,
		"limit":  limit,
		"offset": offset,
		"items":  items,
	})
}

func (h *Handler) live(c *gin.Context) {
	p, err := h.Cache.LivePrint(c.Request.Context(), c.Query("set"), c.Query("cn"), c.Query("name"))
	if err != nil {
		if scryfall.IsNotFound(err) || errors.Is(err, scryfall.ErrDatasetNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "provider lookup failed"})
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) oracleByID(c *gin.Context) {
	if !h.ready(c) {
		return
	}
	oc := h.Cache.Oracle(c.Param("id"))
	if oc == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, oc)
}

func (h *Handler) printsByOracle(c *gin.Context) {
	if !h.ready(c) {
		return
	}
	items := h.Cache.PrintsForOracle(c.Param("id"))
	c.JSON(http.StatusOK, gin.H{"total": len(items), "items": items})
}

func (h *Handler) rulings(c *gin.Context) {
	if !h.Cache.RulingsReady() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "rulings not loaded"})
		return
	}
	items := h.Cache.RulingsForOracle(c.Param("id"))
	c.JSON(http.StatusOK, gin.H{"total": len(items), "items": items})
}

func (h *Handler) sets(c *gin.Context) {
	if !h.ready(c) {
		return
	}
	s := h.Cache.Snapshot()
	type setInfo struct {
		Code       string `json:"code"`
		Name       string `json:"name"`
		ReleasedAt string `json:"released_at,omitempty"`
	}
	var items []setInfo
	for _, code := range s.AllSetCodes() {
		name, _ := s.SetNameForCode(code)
		released, _ := s.SetReleaseForCode(code)
		items = append(items, setInfo{Code: code, Name: name, ReleasedAt: released})
	}
	c.JSON(http.StatusOK, gin.H{"total": len(items), "items": items})
}

func (h *Handler) stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.Cache.Stats())
}

func (h *Handler) epoch(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"epoch": h.Cache.Epoch(), "ready": h.Cache.Ready()})
}

func (h *Handler) sync(c *gin.Context) {
	kind := c.DefaultQuery("kind", KindDefaultCards)
	force := c.Query("force") == "true" || c.Query("force") == "1"

	res, err := h.Cache.Sync(c.Request.Context(), kind, force, nil)
	if err != nil {
		if !validKind(kind) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown dataset kind"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "sync failed"})
		return
	}
	if res.Status == models.SyncStatusLocked {
		c.JSON(http.StatusConflict, res)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) ready(c *gin.Context) bool {
	if !h.Cache.Ready() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "card data not loaded"})
		return false
	}
	return true
}

func parseInt(s string, def int) int {
	if strings.TrimSpace(s) == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
