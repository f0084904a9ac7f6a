package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/offolaunch/launchtrack/internal/services"
)

func (h *Handler) SupportedCities(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"cities": h.svc.Integrations.SupportedCities()})
}

// SyncCity looks a permit number up in a city's open data.
func (h *Handler) SyncCity(ctx *gin.Context) {
	var body services.CityLookupInput

	if !h.bind(ctx, &body) {
		return
	}

	lookup, err := h.svc.Integrations.PermitStatus(ctx.Request.Context(), ctx.Param("city"), body.Location, body.PermitNumber)

	if err != nil {
		h.fail(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, lookup)
}

func (h *Handler) CityPermitStatus(ctx *gin.Context) {
	lookup, err := h.svc.Integrations.PermitStatus(ctx.Request.Context(), ctx.Param("city"), nil, ctx.Param("permitNumber"))

	if err != nil {
		h.fail(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, lookup)
}

func (h *Handler) SearchCityPermits(ctx *gin.Context) {
	lookup, err := h.svc.Integrations.SearchBusinessPermits(ctx.Request.Context(), ctx.Param("city"), ctx.Query("name"))

	if err != nil {
		h.fail(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, lookup)
}
