package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"net/http"
	"slices"
	"strconv"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rl1809/brick-inventory/internal/core/domain"
	"github.com/rl1809/brick-inventory/internal/core/service"
	"github.com/rl1809/brick-inventory/internal/metrics"
)

const (
	requestIDHeader   = "X-Request-ID"
	defaultTopCount   = 5
	defaultPopularity = 10
)

type HTTPHandler struct {
	inventory *service.InventoryService
	views     *service.ViewService
	colors    *domain.ColorIndex
	logger    *zap.Logger
}

type WarningResponse struct {
	Kind       string `json:"kind"`
	AssemblyID string `json:"assembly_id"`
}

type InventoryLine struct {
	ItemID    string `json:"item_id"`
	ColorID   string `json:"color_id"`
	ColorName string `json:"color_name,omitempty"`
	Quantity  int    `json:"quantity"`
}

type InventoryHTTPResponse struct {
	UserID        string            `json:"user_id"`
	Items         []InventoryLine   `json:"items"`
	DirectUnits   int               `json:"direct_units"`
	AssemblyUnits int               `json:"assembly_units"`
	Warnings      []WarningResponse `json:"warnings,omitempty"`
}

type CompletionHTTPResponse struct {
	UserID     string            `json:"user_id"`
	AssemblyID string            `json:"assembly_id"`
	Percentage float64           `json:"percentage"`
	Warnings   []WarningResponse `json:"warnings,omitempty"`
}

type CandidateResponse struct {
	AssemblyID string  `json:"assembly_id"`
	Similarity float64 `json:"similarity,omitempty"`
	Percentage float64 `json:"percentage"`
}

type CheapestResponse struct {
	CandidateResponse
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

type CandidatesHTTPResponse struct {
	UserID     string              `json:"user_id"`
	Mode       string              `json:"mode"`
	Candidates []CandidateResponse `json:"candidates"`
	Cheapest   *CheapestResponse   `json:"cheapest,omitempty"`
	Warnings   []WarningResponse   `json:"warnings,omitempty"`
}

type ItemValueResponse struct {
	ItemID    string          `json:"item_id"`
	ColorID   string          `json:"color_id"`
	ColorName string          `json:"color_name,omitempty"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	Value     decimal.Decimal `json:"value"`
}

type ValueHTTPResponse struct {
	UserID        string             `json:"user_id"`
	Policy        string             `json:"policy"`
	Total         decimal.Decimal    `json:"total"`
	MostExpensive *ItemValueResponse `json:"most_expensive,omitempty"`
	PricedItems   int                `json:"priced_items"`
	UnpricedItems int                `json:"unpriced_items"`
}

type PopularAssemblyResponse struct {
	AssemblyID string `json:"assembly_id"`
	Name       string `json:"name"`
	Year       int    `json:"year"`
	PieceCount int    `json:"piece_count"`
	Views      int64  `json:"views"`
}

type TallyResponse struct {
	ID    string `json:"id"`
	Count int    `json:"count"`
}

type AssemblyStatResponse struct {
	AssemblyID string           `json:"assembly_id"`
	Name       string           `json:"name"`
	PieceCount int              `json:"piece_count"`
	Price      *decimal.Decimal `json:"price,omitempty"`
}

type OfferStatResponse struct {
	ItemID    string          `json:"item_id"`
	ColorID   string          `json:"color_id"`
	ColorName string          `json:"color_name,omitempty"`
	Price     decimal.Decimal `json:"price"`
}

type ColorOffersResponse struct {
	ColorID   string `json:"color_id"`
	ColorName string `json:"color_name,omitempty"`
	Offers    int    `json:"offers"`
}

type CatalogStatsResponse struct {
	Assemblies       int                   `json:"assemblies"`
	PricedAssemblies int                   `json:"priced_assemblies"`
	AveragePieces    float64               `json:"average_pieces"`
	MostPieces       *AssemblyStatResponse `json:"most_pieces,omitempty"`
	FewestPieces     *AssemblyStatResponse `json:"fewest_pieces,omitempty"`
	CheapestAssembly *AssemblyStatResponse `json:"cheapest_assembly,omitempty"`
	PriciestAssembly *AssemblyStatResponse `json:"priciest_assembly,omitempty"`
	Items            int                   `json:"items"`
	OffersByColor    []ColorOffersResponse `json:"offers_by_color"`
	MostOffers       *TallyResponse        `json:"most_offers,omitempty"`
	FewestOffers     *TallyResponse        `json:"fewest_offers,omitempty"`
	CheapestOffer    *OfferStatResponse    `json:"cheapest_offer,omitempty"`
	PriciestOffer    *OfferStatResponse    `json:"priciest_offer,omitempty"`
}

type HoldingsStatsResponse struct {
	Users               int            `json:"users"`
	UsersWithItems      int            `json:"users_with_items"`
	UsersWithAssemblies int            `json:"users_with_assemblies"`
	MostUnits           *TallyResponse `json:"most_units,omitempty"`
	FewestUnits         *TallyResponse `json:"fewest_units,omitempty"`
	MostAssemblies      *TallyResponse `json:"most_assemblies,omitempty"`
	FewestAssemblies    *TallyResponse `json:"fewest_assemblies,omitempty"`
	MostOwnedItem       *TallyResponse `json:"most_owned_item,omitempty"`
	LeastOwnedItem      *TallyResponse `json:"least_owned_item,omitempty"`
	MostOwnedAssembly   *TallyResponse `json:"most_owned_assembly,omitempty"`
	LeastOwnedAssembly  *TallyResponse `json:"least_owned_assembly,omitempty"`
}

type StatsHTTPResponse struct {
	Catalog  CatalogStatsResponse  `json:"catalog"`
	Holdings HoldingsStatsResponse `json:"holdings"`
}

type ErrorHTTPResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func NewHTTPHandler(inventory *service.InventoryService, views *service.ViewService, colors *domain.ColorIndex, logger *zap.Logger) *HTTPHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPHandler{
		inventory: inventory,
		views:     views,
		colors:    colors,
		logger:    logger,
	}
}

// Routes returns the API mux with every route instrumented.
func (h *HTTPHandler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", h.instrument("health", h.HealthCheck))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /api/users/{user}/inventory", h.instrument("inventory", h.Inventory))
	mux.HandleFunc("GET /api/users/{user}/completion/{assembly}", h.instrument("completion", h.Completion))
	mux.HandleFunc("GET /api/users/{user}/candidates", h.instrument("candidates", h.Candidates))
	mux.HandleFunc("GET /api/users/{user}/value", h.instrument("value", h.Value))
	mux.HandleFunc("GET /api/assemblies/popular", h.instrument("popular", h.Popular))
	mux.HandleFunc("GET /api/stats", h.instrument("stats", h.Stats))
	return mux
}

// Inventory renders the materialized inventory. An optional color query
// parameter filters by color name.
func (h *HTTPHandler) Inventory(w http.ResponseWriter, r *http.Request) {
	colorFilter := ""
	if name := r.URL.Query().Get("color"); name != "" {
		id, ok := h.colors.ID(name)
		if !ok {
			h.writeError(w, r, badRequest("unknown color "+strconv.Quote(name)))
			return
		}
		colorFilter = id
	}

	inv, err := h.inventory.Materialize(r.Context(), r.PathValue("user"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := InventoryHTTPResponse{
		UserID:        inv.UserID,
		Items:         []InventoryLine{},
		DirectUnits:   inv.DirectUnits,
		AssemblyUnits: inv.AssemblyUnits,
		Warnings:      toWarnings(inv.Warnings),
	}
	for _, id := range inv.Inventory.Identities() {
		if colorFilter != "" && id.ColorID != colorFilter {
			continue
		}
		name, _ := h.colors.Name(id.ColorID)
		resp.Items = append(resp.Items, InventoryLine{
			ItemID:    id.ItemID,
			ColorID:   id.ColorID,
			ColorName: name,
			Quantity:  inv.Inventory.Get(id),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// Completion scores one assembly and counts the request as a view of it.
func (h *HTTPHandler) Completion(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("user")
	assemblyID := r.PathValue("assembly")

	c, err := h.inventory.ScoreCompletion(r.Context(), userID, assemblyID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if h.views != nil {
		if err := h.views.RecordView(r.Context(), userID, assemblyID); err != nil && !errors.Is(err, service.ErrDuplicateView) {
			h.logger.Warn("failed to record view",
				zap.String("request_id", requestID(r)),
				zap.String("assembly_id", assemblyID),
				zap.Error(err),
			)
		}
	}

	writeJSON(w, http.StatusOK, CompletionHTTPResponse{
		UserID:     c.UserID,
		AssemblyID: c.AssemblyID,
		Percentage: c.Percentage,
		Warnings:   toWarnings(c.Warnings),
	})
}

func (h *HTTPHandler) Candidates(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var mode domain.RankMode
	switch q.Get("mode") {
	case "", string(domain.ModeShortlist):
		top := defaultTopCount
		if raw := q.Get("top"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				h.writeError(w, r, badRequest("top must be an integer"))
				return
			}
			top = n
		}
		mode = domain.ShortlistMode(top)
	case string(domain.ModeCheapest):
		mode = domain.CheapestMode()
	default:
		mode = domain.RankMode{Kind: domain.RankModeKind(q.Get("mode"))}
	}

	ranking, err := h.inventory.RankCandidates(r.Context(), r.PathValue("user"), mode)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := CandidatesHTTPResponse{
		UserID:     ranking.UserID,
		Mode:       string(ranking.Mode.Kind),
		Candidates: make([]CandidateResponse, 0, len(ranking.Candidates)),
		Warnings:   toWarnings(ranking.Warnings),
	}
	for _, c := range ranking.Candidates {
		resp.Candidates = append(resp.Candidates, toCandidate(c))
	}
	if ch := ranking.Cheapest; ch != nil {
		resp.Cheapest = &CheapestResponse{
			CandidateResponse: toCandidate(ch.Candidate),
			Name:              ch.Summary.Name,
			Price:             ch.Price,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *HTTPHandler) Value(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("policy")
	if raw == "" {
		raw = string(domain.PolicyLowest)
	}
	policy, err := domain.ParseOfferPolicy(raw)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	v, err := h.inventory.ValueInventory(r.Context(), r.PathValue("user"), policy)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := ValueHTTPResponse{
		UserID:        v.UserID,
		Policy:        string(v.Policy),
		Total:         v.Total,
		PricedItems:   v.PricedItems,
		UnpricedItems: v.UnpricedItems,
	}
	if best := v.MostExpensive; best != nil {
		name, _ := h.colors.Name(best.Identity.ColorID)
		resp.MostExpensive = &ItemValueResponse{
			ItemID:    best.Identity.ItemID,
			ColorID:   best.Identity.ColorID,
			ColorName: name,
			UnitPrice: best.UnitPrice,
			Quantity:  best.Quantity,
			Value:     best.Value,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *HTTPHandler) Popular(w http.ResponseWriter, r *http.Request) {
	if h.views == nil {
		writeJSON(w, http.StatusOK, []PopularAssemblyResponse{})
		return
	}

	n := defaultPopularity
	if raw := r.URL.Query().Get("n"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			h.writeError(w, r, badRequest("n must be an integer"))
			return
		}
		n = parsed
	}

	top, err := h.views.Popular(r.Context(), n)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := make([]PopularAssemblyResponse, 0, len(top))
	for _, p := range top {
		resp = append(resp, PopularAssemblyResponse{
			AssemblyID: p.Summary.AssemblyID,
			Name:       p.Summary.Name,
			Year:       p.Summary.Year,
			PieceCount: p.Summary.PieceCount,
			Views:      p.Views,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *HTTPHandler) Stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.inventory.Statistics(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	c := st.Catalog
	resp := StatsHTTPResponse{
		Catalog: CatalogStatsResponse{
			Assemblies:       c.Assemblies,
			PricedAssemblies: c.PricedAssemblies,
			AveragePieces:    c.AveragePieces,
			MostPieces:       assemblyStatResponse(c.MostPieces),
			FewestPieces:     assemblyStatResponse(c.FewestPieces),
			CheapestAssembly: assemblyStatResponse(c.CheapestAssembly),
			PriciestAssembly: assemblyStatResponse(c.PriciestAssembly),
			Items:            c.Items,
			OffersByColor:    make([]ColorOffersResponse, 0, len(c.OffersByColor)),
			MostOffers:       tallyResponse(c.MostOffers),
			FewestOffers:     tallyResponse(c.FewestOffers),
			CheapestOffer:    h.offerStatResponse(c.CheapestOffer),
			PriciestOffer:    h.offerStatResponse(c.PriciestOffer),
		},
		Holdings: HoldingsStatsResponse{
			Users:               st.Holdings.Users,
			UsersWithItems:      st.Holdings.UsersWithItems,
			UsersWithAssemblies: st.Holdings.UsersWithAssemblies,
			MostUnits:           tallyResponse(st.Holdings.MostUnits),
			FewestUnits:         tallyResponse(st.Holdings.FewestUnits),
			MostAssemblies:      tallyResponse(st.Holdings.MostAssemblies),
			FewestAssemblies:    tallyResponse(st.Holdings.FewestAssemblies),
			MostOwnedItem:       tallyResponse(st.Holdings.MostOwnedItem),
			LeastOwnedItem:      tallyResponse(st.Holdings.LeastOwnedItem),
			MostOwnedAssembly:   tallyResponse(st.Holdings.MostOwnedAssembly),
			LeastOwnedAssembly:  tallyResponse(st.Holdings.LeastOwnedAssembly),
		},
	}
	for _, id := range slices.Sorted(maps.Keys(c.OffersByColor)) {
		name, _ := h.colors.Name(id)
		resp.Catalog.OffersByColor = append(resp.Catalog.OffersByColor, ColorOffersResponse{
			ColorID:   id,
			ColorName: name,
			Offers:    c.OffersByColor[id],
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *HTTPHandler) offerStatResponse(o *domain.OfferStat) *OfferStatResponse {
	if o == nil {
		return nil
	}
	name, _ := h.colors.Name(o.Identity.ColorID)
	return &OfferStatResponse{
		ItemID:    o.Identity.ItemID,
		ColorID:   o.Identity.ColorID,
		ColorName: name,
		Price:     o.Price,
	}
}

func assemblyStatResponse(a *domain.AssemblyStat) *AssemblyStatResponse {
	if a == nil {
		return nil
	}
	out := &AssemblyStatResponse{AssemblyID: a.AssemblyID, Name: a.Name, PieceCount: a.PieceCount}
	if a.Price.Valid {
		out.Price = &a.Price.Decimal
	}
	return out
}

func tallyResponse(t *domain.Tally) *TallyResponse {
	if t == nil {
		return nil
	}
	return &TallyResponse{ID: t.ID, Count: t.Count}
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// instrument tags the request with an id and counts it by route and status.
func (h *HTTPHandler) instrument(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(requestIDHeader) == "" {
			r.Header.Set(requestIDHeader, uuid.NewString())
		}
		w.Header().Set(requestIDHeader, r.Header.Get(requestIDHeader))

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)
		metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
	}
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	message := "internal error"

	if errors.Is(err, domain.ErrNotFound) {
		status = http.StatusNotFound
		message = err.Error()
	} else if errors.Is(err, domain.ErrInvalidInput) {
		status = http.StatusBadRequest
		message = err.Error()
	} else {
		h.logger.Error("request failed",
			zap.String("request_id", requestID(r)),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}

	writeJSON(w, status, ErrorHTTPResponse{
		Error:     message,
		RequestID: requestID(r),
	})
}

func badRequest(msg string) error {
	return fmt.Errorf("%w: %s", domain.ErrInvalidInput, msg)
}

func requestID(r *http.Request) string {
	return r.Header.Get(requestIDHeader)
}

func toWarnings(ws []domain.Warning) []WarningResponse {
	if len(ws) == 0 {
		return nil
	}
	out := make([]WarningResponse, len(ws))
	for i, w := range ws {
		out[i] = WarningResponse{Kind: string(w.Kind), AssemblyID: w.AssemblyID}
	}
	return out
}

func toCandidate(c domain.Candidate) CandidateResponse {
	return CandidateResponse{
		AssemblyID: c.AssemblyID,
		Similarity: c.Similarity,
		Percentage: c.Percentage,
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
