package homeassistant

import (
	"context"
	"fmt"
	"strings"

	"github.com/berfenger/receiptpanel/internal/config"
	"github.com/berfenger/receiptpanel/internal/core/domain"
	"github.com/berfenger/receiptpanel/internal/core/port"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// RestClient covers the calls Home Assistant serves over its REST API.
type RestClient struct {
	httpClient    *resty.Client
	serviceDomain string
	logger        *zap.Logger
}

var _ port.SnapshotSource = (*RestClient)(nil)
var _ port.GenerationService = (*RestClient)(nil)
var _ port.ListingService = (*RestClient)(nil)
var _ port.DeletionService = (*RestClient)(nil)

func NewRestClient(cfg *config.Config, logger *zap.Logger) *RestClient {
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.HomeAssistant.URL, "/")).
		SetTimeout(cfg.HomeAssistantTimeout()).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if cfg.HomeAssistant.Token != "" {
		client.SetAuthToken(cfg.HomeAssistant.Token)
	}

	return &RestClient{
		httpClient:    client,
		serviceDomain: cfg.HomeAssistant.ServiceDomain,
		logger:        logger,
	}
}

func (c *RestClient) GetSnapshot(ctx context.Context) (domain.Snapshot, error) {
	var states []entityState
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetResult(&states).
		Get("/api/states")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch states: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("failed to fetch states: %s", resp.Status())
	}

	snapshot := make(domain.Snapshot, 0, len(states))
	for _, s := range states {
		snapshot = append(snapshot, domain.RawEntity{
			ID:           s.EntityId,
			State:        s.State,
			FriendlyName: s.friendlyName(),
		})
	}
	c.logger.Debug("homeassistant: states fetched", zap.Int("entities", len(snapshot)))
	return snapshot, nil
}

// Generate calls the generation service. A nil error only means the host accepted the call.
func (c *RestClient) Generate(ctx context.Context, req domain.GenerationRequest) error {
	data := generateServiceData{
		EntityIds:      req.EntityIds,
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
		Filename:       req.Filename,
		FilenamePrefix: req.FilenamePrefix,
	}
	c.logger.Info("homeassistant: calling generate service",
		zap.String("request_id", req.Id),
		zap.Strings("entity_ids", req.EntityIds),
		zap.String("start_date", req.StartDate),
		zap.String("end_date", req.EndDate),
	)
	_, err := c.callService(ctx, SERVICE_GENERATE_PDF, data, false, nil)
	return err
}

func (c *RestClient) ListReports(ctx context.Context) ([]string, error) {
	var result listServiceResponse
	if _, err := c.callService(ctx, SERVICE_LIST_PDFS, map[string]any{}, true, &result); err != nil {
		return nil, err
	}
	files := result.ServiceResponse.PdfFiles
	if files == nil {
		files = []string{}
	}
	return files, nil
}

func (c *RestClient) DeleteReport(ctx context.Context, filename string) error {
	_, err := c.callService(ctx, SERVICE_DELETE_PDF, deleteServiceData{Filename: filename}, false, nil)
	return err
}

func (c *RestClient) callService(ctx context.Context, service string, body any, returnResponse bool, result any) (*resty.Response, error) {
	req := c.httpClient.R().
		SetContext(ctx).
		SetBody(body).
		SetError(&apiMessage{})
	if returnResponse {
		req.SetQueryParam("return_response", "")
	}
	if result != nil {
		req.SetResult(result)
	}

	path := fmt.Sprintf("/api/services/%s/%s", c.serviceDomain, service)
	resp, err := req.Post(path)
	if err != nil {
		return resp, fmt.Errorf("failed to call %s.%s: %w", c.serviceDomain, service, err)
	}
	if resp.IsError() {
		msg := resp.Status()
		if apiErr, ok := resp.Error().(*apiMessage); ok && apiErr.Message != "" {
			msg = apiErr.Message
		}
		c.logger.Error("homeassistant: service call failed",
			zap.String("service", service),
			zap.Int("status_code", resp.StatusCode()),
			zap.String("message", msg),
		)
		return resp, fmt.Errorf("service %s.%s failed: %s", c.serviceDomain, service, msg)
	}
	return resp, nil
}
