package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/DimaJoyti/infer-wlm/internal/demoruntime"
	"github.com/DimaJoyti/infer-wlm/internal/wlm/application"
	"github.com/DimaJoyti/infer-wlm/internal/wlm/domain"
	"github.com/DimaJoyti/infer-wlm/pkg/config"
	apperrors "github.com/DimaJoyti/infer-wlm/pkg/errors"
	"github.com/DimaJoyti/infer-wlm/pkg/logger"
	"github.com/DimaJoyti/infer-wlm/pkg/metrics"
)

const serviceName = "wlm-server"

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the workload manager and its admin HTTP surface",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(serviceName, logger.Config{
		Development: cfg.Logging.Development,
		Level:       cfg.Logging.Level,
	})
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer log.Sync()

	log.Info("🚀 starting workload manager", zap.String("environment", cfg.Environment))

	manager := application.NewWorkloadManager(application.Config{
		GPUCount:        cfg.Manager.GPUCount,
		MaxTotalWorkers: cfg.Manager.MaxTotalWorkers,
		Recorder:        metrics.NewRecorder(),
	}, log)

	if len(cfg.Models) == 0 {
		log.Warn("no models configured, registering a single demo model")
		cfg.Models = []config.ModelConfig{{
			Name:          "demo",
			MinWorkers:    1,
			MaxWorkers:    4,
			BatchSize:     8,
			MaxBatchDelay: 50 * time.Millisecond,
			QueueSize:     256,
		}}
	}

	models := make(map[string]domain.ModelInfo, len(cfg.Models))
	for _, mc := range cfg.Models {
		info := toModelInfo(mc)
		if err := info.Validate(); err != nil {
			return fmt.Errorf("model %q: %w", mc.Name, err)
		}
		models[info.Name] = info
		runtime := demoruntime.NewEcho(log, 0.01, 0.1, int64(len(info.Name)+1))
		manager.ModelChanged(info, runtime, false)
		log.Info("✅ model registered", zap.String("model", info.Name),
			zap.Int("min_workers", info.MinWorkers), zap.Int("max_workers", info.MaxWorkers))
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      newAdminRouter(manager, models, log),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info("🌐 admin HTTP surface listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("admin server failed", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	log.Info("🛑 shutting down workload manager")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("admin server shutdown error", zap.Error(err))
	}

	manager.Shutdown()
	log.Info("✅ workload manager stopped gracefully")
	return nil
}

func toModelInfo(mc config.ModelConfig) domain.ModelInfo {
	return domain.ModelInfo{
		Name:          mc.Name,
		MinWorkers:    mc.MinWorkers,
		MaxWorkers:    mc.MaxWorkers,
		BatchSize:     mc.BatchSize,
		MaxBatchDelay: mc.MaxBatchDelay,
		QueueSize:     mc.QueueSize,
		Accelerated:   mc.Accelerated,
	}
}

// writeAppError renders an AppError as its own JSON body at the status
// code it carries.
func writeAppError(c *gin.Context, err *apperrors.AppError) {
	c.JSON(err.StatusCode, err)
}

func unknownModelError(name string) *apperrors.AppError {
	return apperrors.New(apperrors.NotFoundError, fmt.Sprintf("unknown model %q", name)).
		WithCode("model_not_found").
		WithStatusCode(http.StatusNotFound)
}

// newAdminRouter builds the admin/observability surface: health, Prometheus
// metrics, pool introspection and a demo prediction endpoint used to drive
// the manager end to end without a separate front-end process. It is never
// the system's job-submission front door in production; that is an external
// collaborator speaking directly to WorkloadManager.Submit.
func newAdminRouter(manager *application.WorkloadManager, models map[string]domain.ModelInfo, log *zap.Logger) http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": serviceName})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/v1/models/:name/workers", func(c *gin.Context) {
		name := c.Param("name")
		workers := manager.Workers(name)
		resp := make([]gin.H, 0, len(workers))
		for _, w := range workers {
			resp = append(resp, gin.H{
				"id":        w.ID,
				"device_id": w.DeviceID,
				"permanent": w.Permanent,
				"state":     w.State().String(),
			})
		}
		c.JSON(http.StatusOK, gin.H{"model": name, "workers": resp})
	})

	r.POST("/v1/models/:name/reconcile", func(c *gin.Context) {
		name := c.Param("name")
		info, ok := models[name]
		if !ok {
			writeAppError(c, unknownModelError(name))
			return
		}
		manager.ModelChanged(info, nil, false)
		c.JSON(http.StatusAccepted, gin.H{"model": name, "running_workers": manager.RunningWorkerCount(name)})
	})

	r.POST("/v1/models/:name/predict", func(c *gin.Context) {
		name := c.Param("name")
		info, ok := models[name]
		if !ok {
			writeAppError(c, unknownModelError(name))
			return
		}

		var body struct {
			Input any `json:"input"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			writeAppError(c, apperrors.Wrap(err, apperrors.ValidationError, "invalid request body").
				WithCode("invalid_body").WithStatusCode(http.StatusBadRequest))
			return
		}

		type outcome struct {
			value any
			err   error
		}
		result := make(chan outcome, 1)
		job := domain.NewJob(body.Input, domain.CompletionFunc{
			OnSuccess: func(v any) { result <- outcome{value: v} },
			OnFailure: func(err error) { result <- outcome{err: err} },
		})

		requestID := uuid.NewString()
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		if !manager.Submit(ctx, info, job) {
			log.Warn("predict request rejected", zap.String("model", name), zap.String("request_id", requestID))
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "rejected", "request_id": requestID})
			return
		}

		select {
		case r := <-result:
			if r.err != nil {
				c.JSON(http.StatusUnprocessableEntity, gin.H{"error": r.err.Error(), "request_id": requestID})
				return
			}
			c.JSON(http.StatusOK, gin.H{"output": r.value, "request_id": requestID})
		case <-ctx.Done():
			c.JSON(http.StatusGatewayTimeout, gin.H{"error": "timed out waiting for result", "request_id": requestID})
		}
	})

	return r
}
