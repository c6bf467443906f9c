package httpserver

import (
	"errors"
	"net/http"

	"github.com/Clark-Hu/bitebuzz/internal/builder"
)

type builderCategory struct {
	ID      builder.Category `json:"id"`
	Title   string           `json:"title"`
	Options []builder.Option `json:"options"`
}

type builderCatalogResponse struct {
	Categories []builderCategory   `json:"categories"`
	Highlights []builder.Highlight `json:"highlights"`
}

type builderRequest struct {
	Selections builder.Selection `json:"selections"`
}

func (s *Server) handleBuilderCatalog(w http.ResponseWriter, r *http.Request) {
	resp := builderCatalogResponse{Highlights: builder.Highlights()}
	for _, c := range builder.Categories {
		resp.Categories = append(resp.Categories, builderCategory{ID: c, Title: c.Title(), Options: builder.Options(c)})
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleBuildBowl(w http.ResponseWriter, r *http.Request) {
	var req builderRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}
	bowl, err := builder.Build(req.Selections)
	if err != nil {
		if errors.Is(err, builder.ErrUnknownCategory) || errors.Is(err, builder.ErrUnknownOption) {
			s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error())
			return
		}
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "unable to build bowl")
		return
	}
	s.respondJSON(w, http.StatusOK, bowl)
}
