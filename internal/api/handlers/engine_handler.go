package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/quent-dev/inventory-system/internal/config"
	"github.com/quent-dev/inventory-system/internal/domain"
	"github.com/quent-dev/inventory-system/internal/engine"
	"github.com/quent-dev/inventory-system/internal/velocity"
)

type EngineHandler struct {
	engine *engine.Engine
	stores []string
}

func NewEngineHandler(eng *engine.Engine, stores []string) *EngineHandler {
	return &EngineHandler{engine: eng, stores: stores}
}

func (h *EngineHandler) GetStores(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"stores": h.stores})
}

func (h *EngineHandler) GetInventory(c *gin.Context) {
	store := c.Param("store")
	results, err := h.engine.ComputeAll(c.Request.Context(), store)
	if err != nil {
		engineError(c, err, "failed to compute inventory")
		return
	}

	if status := strings.TrimSpace(c.Query("status")); status != "" {
		want := domain.BuildStatus(strings.ToUpper(status))
		filtered := make([]domain.EffectiveInventory, 0, len(results))
		for _, r := range results {
			if r.Status == want {
				filtered = append(filtered, r)
			}
		}
		results = filtered
	}

	c.JSON(http.StatusOK, gin.H{
		"store": store,
		"kits":  results,
		"total": len(results),
	})
}

func (h *EngineHandler) GetKitInventory(c *gin.Context) {
	store := c.Param("store")
	kitSKU := c.Param("kit")

	results, err := h.engine.ComputeAll(c.Request.Context(), store)
	if err != nil {
		engineError(c, err, "failed to compute inventory")
		return
	}

	for _, r := range results {
		if r.KitSKU == kitSKU {
			c.JSON(http.StatusOK, r)
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "kit not found", "kit": kitSKU})
}

func (h *EngineHandler) GetAnomalies(c *gin.Context) {
	store := c.Param("store")
	issues, err := h.engine.ScanAnomalies(c.Request.Context(), store)
	if err != nil {
		engineError(c, err, "failed to scan anomalies")
		return
	}

	if severity := strings.TrimSpace(c.Query("severity")); severity != "" {
		want := domain.Severity(strings.ToLower(severity))
		filtered := make([]domain.Issue, 0, len(issues))
		for _, issue := range issues {
			if issue.Severity == want {
				filtered = append(filtered, issue)
			}
		}
		issues = filtered
	}

	c.JSON(http.StatusOK, gin.H{
		"store":  store,
		"issues": issues,
		"total":  len(issues),
	})
}

type simulateRequest struct {
	Deltas      map[string]int `json:"deltas"`
	Disassemble *struct {
		Kit      string `json:"kit"`
		Quantity int    `json:"quantity"`
	} `json:"disassemble"`
}

func (h *EngineHandler) Simulate(c *gin.Context) {
	store := c.Param("store")

	var req simulateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}
	if len(req.Deltas) == 0 && req.Disassemble == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "request needs deltas or a disassemble target"})
		return
	}

	var (
		results []domain.EffectiveInventory
		err     error
	)
	if req.Disassemble != nil {
		if req.Disassemble.Quantity <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "disassemble quantity must be positive"})
			return
		}
		results, err = h.engine.SimulateDisassembly(c.Request.Context(), store, req.Disassemble.Kit, req.Disassemble.Quantity)
	} else {
		results, err = h.engine.Simulate(c.Request.Context(), store, req.Deltas)
	}
	if err != nil {
		engineError(c, err, "failed to simulate")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"store": store,
		"kits":  results,
		"total": len(results),
	})
}

func (h *EngineHandler) GetVelocity(c *gin.Context) {
	store := c.Param("store")
	sku := c.Param("sku")

	window, err := h.engine.Velocity(c.Request.Context(), store, sku)
	if err != nil {
		if errors.Is(err, velocity.ErrUnavailable) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "velocity unavailable", "details": err.Error()})
			return
		}
		engineError(c, err, "failed to fetch velocity")
		return
	}

	c.JSON(http.StatusOK, window)
}

func (h *EngineHandler) GetStatus(c *gin.Context) {
	store := c.Param("store")
	status, err := h.engine.Status(c.Request.Context(), store)
	if err != nil {
		engineError(c, err, "failed to fetch status")
		return
	}

	c.JSON(http.StatusOK, status)
}

func engineError(c *gin.Context, err error, message string) {
	if errors.Is(err, config.ErrUnknownStore) {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown store", "details": err.Error()})
		return
	}
	c.JSON(http.StatusBadGateway, gin.H{"error": message, "details": err.Error()})
}
