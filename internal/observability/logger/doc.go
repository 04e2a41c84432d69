// Package logger expone un logger Zap singleton con scoping por contexto.
//
// Inicialización (una vez en main.go):
//
//	logger.Init(logger.Config{
//	    Env:   cfg.Log.Env,   // "dev" o "prod"
//	    Level: cfg.Log.Level, // "debug", "info", "warn", "error"
//	})
//	defer logger.Sync()
//
// En controllers/services:
//
//	log := logger.From(ctx).With(logger.Op("Reconciler.Run"))
//	log.Info("entry authorized", logger.Address(addr), logger.DeviceID(id))
//
// Las unidades de trabajo asíncronas (reconciliaciones) copian el logger del
// request con ToContext antes de desacoplarse del ciclo de vida HTTP.
package logger
