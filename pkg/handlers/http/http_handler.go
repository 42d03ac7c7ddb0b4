package http

import "github.com/gofiber/fiber/v2"

type Handler interface {
	Handle(ctx *fiber.Ctx) error
}

type HandlerTransport struct {
	// Ingestion
	RecordSignalHandler      Handler
	RecordStreamEventHandler Handler

	// Admission
	CheckAdmissionHandler Handler

	// State
	GetSubjectStateHandler Handler
	GetOriginStateHandler  Handler

	// Engines
	ListRulesHandler Handler
	RunJobHandler    Handler

	GetVersionHandler Handler
}
