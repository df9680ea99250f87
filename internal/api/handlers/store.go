package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"shopcsv/internal/cache"
	"shopcsv/internal/config"
	"shopcsv/internal/database"
	"shopcsv/internal/logger"
	"shopcsv/internal/models"
	"shopcsv/internal/queue"
	"shopcsv/internal/report"
	"shopcsv/internal/services/shopify"

	"github.com/gin-gonic/gin"
)

const (
	stateTTL         = 10 * time.Minute
	generatingNotice = "Generating order details. Please wait."
)

// JobQueue hands report requests to the worker.
type JobQueue interface {
	Publish(ctx context.Context, event queue.Event) error
}

type StoreHandler struct {
	db        *database.Database
	logger    *logger.Logger
	config    *config.Config
	oauth     *shopify.OAuthService
	states    cache.StateStore
	generator *report.Generator
	jobs      JobQueue
}

func NewStoreHandler(
	db *database.Database,
	logger *logger.Logger,
	config *config.Config,
	oauth *shopify.OAuthService,
	states cache.StateStore,
	generator *report.Generator,
	jobs JobQueue,
) *StoreHandler {
	return &StoreHandler{
		db:        db,
		logger:    logger,
		config:    config,
		oauth:     oauth,
		states:    states,
		generator: generator,
		jobs:      jobs,
	}
}

// Welcome is the landing page after install.
func (h *StoreHandler) Welcome(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message":        "Shopify order CSV export",
		"install_url":    "/stores/create_permission",
		"download_url":   "/stores/download_csv",
		"async_download": "/stores/download_csv_async",
	})
}

// CreatePermission redirects the merchant to Shopify's consent screen.
func (h *StoreHandler) CreatePermission(c *gin.Context) {
	shop := h.shopDomain(c)
	if !shopify.ValidShopDomain(shop) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid shop domain"})
		return
	}

	state, err := shopify.GenerateState()
	if err != nil {
		h.logger.Error("Failed to generate OAuth state: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start authorization"})
		return
	}

	if err := h.states.Save(c.Request.Context(), state, shop, stateTTL); err != nil {
		h.logger.Error("Failed to store OAuth state: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start authorization"})
		return
	}

	redirectURI := h.config.Domain + "/auth/shopify/callback"
	c.Redirect(http.StatusFound, h.oauth.BuildPermissionURL(shop, shopify.ReadScopes, redirectURI, state))
}

// Callback finishes the OAuth install and stores the shop's token.
func (h *StoreHandler) Callback(c *gin.Context) {
	params := c.Request.URL.Query()

	// unsigned requests must not burn the nonce of a real install
	if !h.oauth.ValidateHMAC(params) {
		h.logger.Warn("Rejected OAuth callback for %s: bad hmac", params.Get("shop"))
		c.JSON(http.StatusBadRequest, gin.H{"error": shopify.ErrInvalidHMAC.Error()})
		return
	}

	shop, err := h.states.Consume(c.Request.Context(), params.Get("state"))
	if err != nil || shop != params.Get("shop") {
		h.logger.Warn("Rejected OAuth callback for %s: unknown state", params.Get("shop"))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid OAuth state"})
		return
	}

	token, err := h.oauth.RequestToken(c.Request.Context(), params)
	if err != nil {
		h.logger.Error("Failed to exchange code for token: %v", err)
		if errors.Is(err, shopify.ErrInvalidHMAC) || errors.Is(err, shopify.ErrInvalidShop) || errors.Is(err, shopify.ErrMissingCode) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to exchange authorization code"})
		return
	}

	if _, err := h.db.SaveStore(shop, token.AccessToken, token.Scope); err != nil {
		h.logger.Error("Failed to save store %s: %v", shop, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save store"})
		return
	}

	h.logger.Info("Store installed: %s", shop)
	c.Redirect(http.StatusFound, "/stores/download_csv?shop="+url.QueryEscape(shop))
}

// DownloadCSV builds the report inside the request and returns it as an attachment.
func (h *StoreHandler) DownloadCSV(c *gin.Context) {
	store, ok := h.store(c)
	if !ok {
		return
	}

	session := shopify.NewSession(store.ShopDomain, store.AccessToken, h.config.APIVersion)
	result, err := h.generator.Generate(c.Request.Context(), session)
	if err != nil {
		h.logger.Error("Failed to generate report for %s: %v", store.ShopDomain, err)
		h.writeReportError(c, err)
		return
	}

	sendCSV(c, report.Filename(result.GeneratedAt), result.CSV)
}

// DownloadCSVAsync queues a report job and returns immediately.
func (h *StoreHandler) DownloadCSVAsync(c *gin.Context) {
	store, ok := h.store(c)
	if !ok {
		return
	}

	job, err := h.db.CreateReportJob(store.ID)
	if err != nil {
		h.logger.Error("Failed to create report job: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create report job"})
		return
	}

	if err := h.jobs.Publish(c.Request.Context(), queue.NewReportRequested(job.ID, store.ID)); err != nil {
		h.logger.Error("Failed to queue report job %s: %v", job.ID, err)
		if markErr := h.db.MarkReportJobFailed(job.ID, err); markErr != nil {
			h.logger.Error("Failed to mark report job %s failed: %v", job.ID, markErr)
		}
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to queue report job"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"notice":     generatingNotice,
		"job_id":     job.ID,
		"status_url": "/stores/reports/" + job.ID,
	})
}

// GetReport returns the status of a queued report.
func (h *StoreHandler) GetReport(c *gin.Context) {
	job, ok := h.reportJob(c)
	if !ok {
		return
	}

	response := gin.H{"data": job}
	if job.Status == models.ReportJobStatusCompleted {
		response["download_url"] = fmt.Sprintf("/stores/reports/%s/download", job.ID)
	}
	c.JSON(http.StatusOK, response)
}

// DownloadReport serves the CSV of a completed report job.
func (h *StoreHandler) DownloadReport(c *gin.Context) {
	job, ok := h.reportJob(c)
	if !ok {
		return
	}

	if job.Status != models.ReportJobStatusCompleted {
		c.JSON(http.StatusConflict, gin.H{"error": "Report is not ready", "status": job.Status})
		return
	}

	day := job.CreatedAt
	if job.CompletedAt != nil {
		day = *job.CompletedAt
	}
	sendCSV(c, report.Filename(day), job.CSV)
}

func (h *StoreHandler) shopDomain(c *gin.Context) string {
	shop := c.Query("shop")
	if shop == "" {
		shop = h.config.ShopName
	}
	if shop == "" {
		return ""
	}
	return config.ShopDomain(shop)
}

// store loads the installed shop for the request, writing a 401 when there is none.
func (h *StoreHandler) store(c *gin.Context) (*models.Store, bool) {
	shop := h.shopDomain(c)
	if shop == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "shop is required"})
		return nil, false
	}

	store, err := h.db.FindStoreByDomain(shop)
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":       "Store is not connected",
			"install_url": "/stores/create_permission?shop=" + url.QueryEscape(shop),
		})
		return nil, false
	}
	if err != nil {
		h.logger.Error("Failed to fetch store %s: %v", shop, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch store"})
		return nil, false
	}
	return store, true
}

func (h *StoreHandler) reportJob(c *gin.Context) (*models.ReportJob, bool) {
	job, err := h.db.FindReportJob(c.Param("id"))
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Report not found"})
		return nil, false
	}
	if err != nil {
		h.logger.Error("Failed to fetch report job: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch report"})
		return nil, false
	}
	return job, true
}

func (h *StoreHandler) writeReportError(c *gin.Context, err error) {
	var lookupErr *report.RemoteLookupError
	var encodingErr *report.EncodingError

	switch {
	case errors.Is(err, report.ErrAuthentication):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Shopify rejected the stored credentials, reinstall the app"})
	case errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "Timed out talking to Shopify"})
	case errors.As(err, &lookupErr):
		c.JSON(http.StatusBadGateway, gin.H{"error": lookupErr.Error()})
	case errors.As(err, &encodingErr):
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to encode report"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate report"})
	}
}

func sendCSV(c *gin.Context, filename string, data []byte) {
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, "text/csv", data)
}
