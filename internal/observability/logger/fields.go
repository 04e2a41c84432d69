package logger

import (
	"time"

	"go.uber.org/zap"
)

// ─── HTTP ───

func RequestID(v string) zap.Field { return zap.String("request_id", v) }
func Method(v string) zap.Field    { return zap.String("method", v) }
func Path(v string) zap.Field      { return zap.String("path", v) }
func Status(v int) zap.Field       { return zap.Int("status", v) }
func Bytes(v int) zap.Field        { return zap.Int("bytes", v) }
func ClientIP(v string) zap.Field  { return zap.String("client_ip", v) }

// DurationMs crea un campo para la duración en milisegundos.
func DurationMs(v int64) zap.Field { return zap.Int64("duration_ms", v) }

// Duration crea un campo de duración legible.
func Duration(v time.Duration) zap.Field { return zap.Duration("duration", v) }

// ─── Dominio ───

// Email crea un campo para el email del dueño del dispositivo (usar con cuidado en prod).
func Email(v string) zap.Field { return zap.String("email", v) }

// Address crea un campo para la dirección del miembro en el directorio (ZeroTier).
func Address(v string) zap.Field { return zap.String("address", v) }

// DeviceID crea un campo para la identidad del dispositivo (holochain agent id).
func DeviceID(v string) zap.Field { return zap.String("device_id", v) }

// Alias crea un campo para el alias de template de notificación.
func Alias(v string) zap.Field { return zap.String("alias", v) }

// State crea un campo para el estado de la reconciliación.
func State(v string) zap.Field { return zap.String("state", v) }

// RunID crea un campo para el ID de una reconciliación.
func RunID(v string) zap.Field { return zap.String("run_id", v) }

// ─── Sistema ───

func Component(v string) zap.Field { return zap.String("component", v) }
func Op(v string) zap.Field        { return zap.String("op", v) }
func Layer(v string) zap.Field     { return zap.String("layer", v) }
func Err(err error) zap.Field      { return zap.Error(err) }
func Count(v int) zap.Field        { return zap.Int("count", v) }

// ─── Genéricos ───

func String(key, v string) zap.Field    { return zap.String(key, v) }
func Int(key string, v int) zap.Field   { return zap.Int(key, v) }
func Bool(key string, v bool) zap.Field { return zap.Bool(key, v) }
func Any(key string, v any) zap.Field   { return zap.Any(key, v) }

// Key crea un campo genérico para una clave (nunca el material, sólo el nombre).
func Key(v string) zap.Field { return zap.String("key", v) }
