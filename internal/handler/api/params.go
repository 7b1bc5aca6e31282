package api

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"PQAnalyzer/internal/domain/models"
	"PQAnalyzer/internal/usecase"
	xhttp "PQAnalyzer/pkg/http"
	xutil "PQAnalyzer/pkg/util"
)

// parsePhenomena accepts names or comma-separated lists.
func parsePhenomena(raw []string) ([]models.Phenomenon, *xhttp.AppError) {
	var out []models.Phenomenon
	for _, item := range raw {
		for _, name := range strings.Split(item, ",") {
			if strings.TrimSpace(name) == "" {
				continue
			}
			p, err := models.ParsePhenomenon(name)
			if err != nil {
				return nil, xhttp.NewAppError("ERR_UNKNOWN_PHENOMENON", "phenomenon", err.Error(), http.StatusBadRequest)
			}
			out = append(out, p)
		}
	}
	return out, nil
}

// queryParams reads phenomenon, exclusive and nominal overrides.
func queryParams(c echo.Context) (usecase.AnalyzeParams, *xhttp.AppError) {
	var p usecase.AnalyzeParams
	ps, appErr := parsePhenomena(c.QueryParams()["phenomenon"])
	if appErr != nil {
		return p, appErr
	}
	p.Phenomena = ps
	if raw := c.QueryParam("exclusive"); raw != "" {
		v := xutil.ParseBoolDefault(raw, false)
		p.Exclusive = &v
	}
	p.Nominal = xhttp.QueryFloat(c, "nominal", 0)
	return p, nil
}
