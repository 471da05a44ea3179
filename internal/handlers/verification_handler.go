package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dvonne2/vitalvida-delivery-core/internal/aws"
	"github.com/dvonne2/vitalvida-delivery-core/internal/orders"
	"github.com/dvonne2/vitalvida-delivery-core/internal/reconcile"
	"github.com/dvonne2/vitalvida-delivery-core/internal/validation"
	"github.com/dvonne2/vitalvida-delivery-core/internal/verification"
)

// HandlerConfig groups dependencies for the delivery verification API.
type HandlerConfig struct {
	DynamoDBClient    aws.DynamoDBAPI
	SQSClient         aws.SQSAPI
	CloudWatchClient  aws.CloudWatchAPI
	VerificationTable string
	OrdersTable       string
	EventsQueueURL    string
	SMSQueueURL       string
	MetricsNamespace  string
	Verification      verification.Config
}

// RegisterVerificationRoutes registers the delivery verification and
// reconciliation routes.
func RegisterVerificationRoutes(r *gin.Engine, cfg HandlerConfig) {
	v := validation.New()
	store := verification.NewStore(cfg.DynamoDBClient, cfg.VerificationTable)
	notifier := aws.NewSMSNotifier(cfg.SQSClient, cfg.SMSQueueURL)
	manager := verification.NewManager(store, notifier, cfg.Verification)
	ordersStore := orders.NewStore(cfg.DynamoDBClient, cfg.OrdersTable)
	engine := reconcile.NewEngine()
	publisher := aws.NewPublisher(cfg.SQSClient, cfg.EventsQueueURL)
	metrics := aws.NewMetrics(cfg.CloudWatchClient, cfg.MetricsNamespace)

	r.POST("/orders/:orderNo/verification", func(c *gin.Context) {
		ctx := c.Request.Context()

		var req validation.IssueVerificationRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			// BindAndValidate already wrote a 400
			return
		}

		issued, err := manager.Issue(ctx, c.Param("orderNo"), req.Destination)
		if err != nil {
			writeVerificationError(c, err)
			return
		}

		count(ctx, metrics, aws.MetricCodesIssued)
		c.JSON(http.StatusCreated, gin.H{
			"request_id": issued.ID,
			"expires_at": issued.ExpiresAt,
		})
	})

	r.POST("/verification/:id/validate", func(c *gin.Context) {
		ctx := c.Request.Context()

		var req validation.ValidateCodeRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			return
		}

		result, err := manager.Validate(ctx, c.Param("id"), req.Code)
		if err != nil {
			writeVerificationError(c, err)
			return
		}

		switch result.Outcome {
		case verification.OutcomeVerified:
			// fire-and-forget: the worker dedupes replays, a lost event only
			// delays reconciliation until the next on-demand recompute
			if err := publisher.PublishDeliveryVerified(ctx, result.Request.OrderRef, result.Request.ID); err != nil {
				log.Printf("[api] publish verified event failed order=%s: %v", result.Request.OrderRef, err)
			}
			count(ctx, metrics, aws.MetricCodesVerified)
			c.JSON(http.StatusOK, gin.H{"outcome": result.Outcome})
		case verification.OutcomeExpired:
			count(ctx, metrics, aws.MetricCodesExpired)
			c.JSON(http.StatusOK, gin.H{"outcome": result.Outcome})
		case verification.OutcomeFailed:
			count(ctx, metrics, aws.MetricCodesFailed)
			c.JSON(http.StatusOK, gin.H{
				"outcome":            result.Outcome,
				"remaining_attempts": result.RemainingAttempts,
			})
		}
	})

	r.POST("/verification/:id/resend", func(c *gin.Context) {
		ctx := c.Request.Context()

		issued, err := manager.Resend(ctx, c.Param("id"))
		if err != nil {
			writeVerificationError(c, err)
			return
		}

		count(ctx, metrics, aws.MetricCodesIssued)
		c.JSON(http.StatusOK, gin.H{
			"request_id": issued.ID,
			"expires_at": issued.ExpiresAt,
		})
	})

	r.GET("/orders/:orderNo/reconciliation", func(c *gin.Context) {
		ctx := c.Request.Context()
		orderNo := c.Param("orderNo")

		order, err := ordersStore.Get(ctx, orderNo)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "order_lookup_failed", "detail": err.Error()})
			return
		}
		if order == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "order_not_found"})
			return
		}

		// no code issued yet counts as a pending verification
		status := verification.StatusPending
		if req, err := manager.Current(ctx, orderNo); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "verification_lookup_failed", "detail": err.Error()})
			return
		} else if req != nil {
			status = req.Status
		}

		c.JSON(http.StatusOK, engine.Reconcile(*order, status))
	})
}

// writeVerificationError maps manager errors onto HTTP statuses.
func writeVerificationError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, verification.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "detail": err.Error()})
	case errors.Is(err, verification.ErrInvalidState):
		c.JSON(http.StatusConflict, gin.H{"error": "invalid_state", "detail": err.Error()})
	case errors.Is(err, verification.ErrInvalidDestination):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_destination", "detail": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "detail": err.Error()})
	}
}

// count emits a metric datapoint, best-effort.
func count(ctx context.Context, metrics *aws.Metrics, name string) {
	if err := metrics.Count(ctx, name, nil); err != nil {
		log.Printf("[api] metric %s emit failed: %v", name, err)
	}
}
