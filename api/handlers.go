// Package api serves the read-only component catalog over HTTP.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"volt-data/cache"
	"volt-data/models"
	"volt-data/presign"
)

// Catalog is the read side the handlers need. *cache.CatalogCache implements it.
type Catalog interface {
	GetAll() []cache.Item
	GetByID(id string) (cache.Item, bool)
	GetByCategory(category string) ([]cache.Item, bool)
	Search(term string) []cache.Item
	Summaries() map[string]models.CategorySummary
	FuseTypes(phase string) []models.FuseType
}

// ImageURLs signs component image URLs. *presign.Service implements it.
type ImageURLs interface {
	ComponentImage(ctx context.Context, componentID string, hours int) presign.Result
}

// ComponentView is a component as the frontend expects it: price as a number,
// empty strings instead of nulls.
type ComponentView struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Fields      int     `json:"fields"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Image       string  `json:"image"`
	Category    string  `json:"category"`
	Subcategory string  `json:"subcategory"`
}

type listResponse struct {
	Success    bool        `json:"success"`
	Data       interface{} `json:"data"`
	Count      *int        `json:"count,omitempty"`
	Category   string      `json:"category,omitempty"`
	SearchTerm string      `json:"searchTerm,omitempty"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// Handler holds the dependencies of the catalog routes.
type Handler struct {
	catalog Catalog
	images  ImageURLs
	logger  *zap.Logger
}

// NewHandler returns a Handler. images may be nil when S3 is not configured;
// the image URL route then answers 503.
func NewHandler(catalog Catalog, images ImageURLs, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{catalog: catalog, images: images, logger: logger}
}

// Router mounts the catalog under /api/components.
func (h *Handler) Router(allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Volt catalog API is running."))
	})

	r.Route("/api/components", func(r chi.Router) {
		r.Get("/", h.listComponents)
		r.Get("/search", h.searchComponents)
		r.Get("/categories", h.listCategories)
		r.Get("/category/{category}", h.componentsByCategory)
		r.Get("/fuse-types", h.listFuseTypes)
		r.Get("/{id}", h.getComponent)
		r.Get("/{id}/image-url", h.imageURL)
	})
	return r
}

// respondWithError sends the error envelope.
func respondWithError(w http.ResponseWriter, code int, message, details string) {
	respondWithJSON(w, code, errorResponse{Success: false, Error: message, Details: details})
}

// respondWithJSON sends a JSON response.
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, "Error marshalling JSON: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithList(w http.ResponseWriter, items []cache.Item, category, searchTerm string) {
	data := views(items)
	n := len(data)
	respondWithJSON(w, http.StatusOK, listResponse{
		Success:    true,
		Data:       data,
		Count:      &n,
		Category:   category,
		SearchTerm: searchTerm,
	})
}

func (h *Handler) listComponents(w http.ResponseWriter, r *http.Request) {
	items := h.catalog.GetAll()
	h.logger.Debug("listed components", zap.Int("count", len(items)))
	respondWithList(w, items, "", "")
}

func (h *Handler) searchComponents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	items := h.catalog.Search(q)
	h.logger.Debug("searched components", zap.String("term", q), zap.Int("count", len(items)))
	respondWithList(w, items, "", q)
}

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, listResponse{Success: true, Data: h.catalog.Summaries()})
}

func (h *Handler) componentsByCategory(w http.ResponseWriter, r *http.Request) {
	category := chi.URLParam(r, "category")
	items, _ := h.catalog.GetByCategory(category)
	respondWithList(w, items, category, "")
}

func (h *Handler) listFuseTypes(w http.ResponseWriter, r *http.Request) {
	phase := r.URL.Query().Get("phase")
	fuseTypes := h.catalog.FuseTypes(phase)
	n := len(fuseTypes)
	respondWithJSON(w, http.StatusOK, listResponse{Success: true, Data: fuseTypes, Count: &n})
}

func (h *Handler) getComponent(w http.ResponseWriter, r *http.Request) {
	item, ok := h.catalog.GetByID(chi.URLParam(r, "id"))
	if !ok {
		respondWithError(w, http.StatusNotFound, "Component not found", "")
		return
	}
	respondWithJSON(w, http.StatusOK, listResponse{Success: true, Data: view(item)})
}

func (h *Handler) imageURL(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if h.images == nil {
		respondWithError(w, http.StatusServiceUnavailable, "Image storage is not configured", "")
		return
	}
	if _, ok := h.catalog.GetByID(id); !ok {
		respondWithError(w, http.StatusNotFound, "Component not found", "")
		return
	}

	hours := int(presign.DefaultExpiry / time.Hour)
	if raw := r.URL.Query().Get("hours"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > presign.MaxHours {
			respondWithError(w, http.StatusBadRequest, "Invalid hours parameter", raw)
			return
		}
		hours = n
	}

	res := h.images.ComponentImage(r.Context(), id, hours)
	code := http.StatusOK
	if !res.Success {
		code = http.StatusInternalServerError
	}
	respondWithJSON(w, code, presign.Response(res))
}

func view(item cache.Item) ComponentView {
	return ComponentView{
		ID:          item.ID,
		Name:        item.Name,
		Fields:      item.Fields,
		Description: item.Description,
		Price:       item.PriceFloat(),
		Image:       item.Image,
		Category:    item.Category,
		Subcategory: item.Subcategory,
	}
}

func views(items []cache.Item) []ComponentView {
	out := make([]ComponentView, 0, len(items))
	for _, it := range items {
		out = append(out, view(it))
	}
	return out
}
