package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/boddenberg/workshop-registration-go/internal/domain"
	"github.com/boddenberg/workshop-registration-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// 4. Administração: /v1/admin/registrants
// ============================================================

func adminListHandler(svc *service.AdminService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/admin/registrants")
		defer span.End()

		list, err := svc.List(ctx, parseListOptions(r))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if list == nil {
			list = []domain.Registrant{}
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func adminGetHandler(svc *service.AdminService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/admin/registrants/{id}")
		defer span.End()

		reg, err := svc.Get(ctx, chi.URLParam(r, "id"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, reg)
	}
}

func adminUpdateHandler(svc *service.AdminService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PATCH /v1/admin/registrants/{id}")
		defer span.End()

		id := chi.URLParam(r, "id")
		span.SetAttributes(attribute.String("registrant.id", id))

		var fields map[string]any
		if err := decodeJSON(w, r, &fields); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		reg, err := svc.Update(ctx, id, fields)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		logger.Info("admin update", zap.String("admin_id", AdminIDFromContext(ctx)), zap.String("registrant_id", id))
		writeJSON(w, http.StatusOK, reg)
	}
}

// bulkHandler decodes a BulkRequest and reports the affected row count.
func bulkHandler(name string, op func(context.Context, *domain.BulkRequest) (int, error), logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/admin/registrants/bulk/"+name)
		defer span.End()

		var req domain.BulkRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		span.SetAttributes(attribute.Int("bulk.ids", len(req.IDs)))

		n, err := op(ctx, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		logger.Info("admin bulk operation",
			zap.String("operation", name),
			zap.String("admin_id", AdminIDFromContext(ctx)),
			zap.Int("affected", n),
		)
		writeJSON(w, http.StatusOK, domain.AffectedResponse{Affected: n})
	}
}

func adminSoftDeleteHandler(svc *service.AdminService, logger *zap.Logger) http.HandlerFunc {
	return bulkHandler("delete", svc.SoftDelete, logger)
}

func adminRestoreHandler(svc *service.AdminService, logger *zap.Logger) http.HandlerFunc {
	return bulkHandler("restore", svc.Restore, logger)
}

func adminHardDeleteHandler(svc *service.AdminService, logger *zap.Logger) http.HandlerFunc {
	return bulkHandler("purge", svc.HardDelete, logger)
}

func adminBulkUpdateHandler(svc *service.AdminService, logger *zap.Logger) http.HandlerFunc {
	return bulkHandler("update", svc.BulkUpdate, logger)
}

func adminStatsHandler(svc *service.AdminService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/admin/registrants/stats")
		defer span.End()

		stats, err := svc.Stats(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}

func adminExportHandler(svc *service.AdminService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/admin/registrants/export.csv")
		defer span.End()

		opts := parseListOptions(r)
		filename := "inscritos-" + time.Now().Format("20060102") + ".csv"
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)

		if err := svc.ExportCSV(ctx, w, opts.IncludeDeleted); err != nil {
			logger.Error("csv export failed", zap.Error(err))
			handleServiceError(w, err, logger)
			return
		}
	}
}
