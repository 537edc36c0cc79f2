package main

import (
	"os"
	"strconv"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// newLogger builds the CLI logger. Output goes to stderr, or to a rotated
// file when file is set. Rotation limits can be tuned with PYRUN_LOG_MAX_SIZE
// (megabytes), PYRUN_LOG_MAX_BACKUPS and PYRUN_LOG_MAX_AGE (days).
func newLogger(level, file string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder

	var sink zapcore.WriteSyncer
	var enc zapcore.Encoder
	if file != "" {
		sink = zapcore.AddSync(newRotator(file))
		enc = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	} else {
		sink = zapcore.Lock(os.Stderr)
		enc = zapcore.NewConsoleEncoder(encCfg)
	}

	core := zapcore.NewCore(enc, sink, lvl)
	return zap.New(core), nil
}

func newRotator(file string) *lumberjack.Logger {
	l := &lumberjack.Logger{
		Filename:   file,
		MaxSize:    10,
		MaxBackups: 3,
		MaxAge:     28,
	}
	if n, ok := envInt("PYRUN_LOG_MAX_SIZE"); ok && n > 0 {
		l.MaxSize = n
	}
	if n, ok := envInt("PYRUN_LOG_MAX_BACKUPS"); ok && n >= 0 {
		l.MaxBackups = n
	}
	if n, ok := envInt("PYRUN_LOG_MAX_AGE"); ok && n > 0 {
		l.MaxAge = n
	}
	return l
}

func envInt(key string) (int, bool) {
	s := os.Getenv(key)
	if s == "" {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}
