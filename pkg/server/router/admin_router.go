package router

import (
	"errors"

	handlers "github.com/NeuralTrust/TrustShield/pkg/handlers/http"
	"github.com/NeuralTrust/TrustShield/pkg/middleware"
	"github.com/gofiber/fiber/v2"
)

var ErrInvalidHandlerTransport = errors.New("invalid handler transport")

type adminRouter struct {
	middlewareTransport *middleware.Transport
	handlerTransport    handlers.HandlerTransport
}

func NewAdminRouter(
	middlewareTransport *middleware.Transport,
	handlerTransport handlers.HandlerTransport,
) ServerRouter {
	return &adminRouter{
		middlewareTransport: middlewareTransport,
		handlerTransport:    handlerTransport,
	}
}

func (r *adminRouter) BuildRoutes(router *fiber.App) error {
	h := r.handlerTransport
	if h.RecordSignalHandler == nil || h.GetVersionHandler == nil {
		return ErrInvalidHandlerTransport
	}

	if r.middlewareTransport != nil && r.middlewareTransport.PanicRecoverMiddleware != nil {
		router.Use(r.middlewareTransport.PanicRecoverMiddleware.Middleware())
	}

	router.Get("/version", h.GetVersionHandler.Handle)

	v1 := router.Group("/api/v1")
	{
		// Detector-facing ingestion and admission checks
		v1.Post("/signals", h.RecordSignalHandler.Handle)
		v1.Post("/streams/:stream/events", h.RecordStreamEventHandler.Handle)
		v1.Post("/admission/check", h.CheckAdmissionHandler.Handle)

		// Operator tooling goes through admission control
		var guarded []fiber.Handler
		if r.middlewareTransport != nil && r.middlewareTransport.AdmissionMiddleware != nil {
			guarded = append(guarded, r.middlewareTransport.AdmissionMiddleware.Middleware())
		}
		with := func(h handlers.Handler) []fiber.Handler {
			return append(append([]fiber.Handler(nil), guarded...), h.Handle)
		}
		v1.Get("/subjects/:subject_id/state", with(h.GetSubjectStateHandler)...)
		v1.Get("/origins/:origin/state", with(h.GetOriginStateHandler)...)
		v1.Get("/rules", with(h.ListRulesHandler)...)
		v1.Post("/jobs/:name/run", with(h.RunJobHandler)...)
	}
	return nil
}
