package application

import "go.uber.org/zap"

const ModuleName = "trading/nft-marketplace"

func ResolveLogger(logger *zap.Logger) *zap.Logger {
	if logger != nil {
		return logger
	}
	return zap.L()
}

// LogFields prefixes the structured keys every marketplace log line carries.
func LogFields(event string, layer string, fields ...zap.Field) []zap.Field {
	return append([]zap.Field{
		zap.String("event", event),
		zap.String("module", ModuleName),
		zap.String("layer", layer),
	}, fields...)
}
