// Package logger настраивает zap: консоль плюс файл с ротацией через lumberjack.
package logger

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Zap оборачивает *zap.Logger, чтобы передавать его между пакетами одним типом.
type Zap struct {
	*zap.Logger
}

// New создает логгер. env=prod включает JSON, иначе консольный формат.
// Если file не пустой, записи дублируются в файл с ротацией.
func New(env, level, file string) (*Zap, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("неверный уровень логирования %q: %w", level, err)
	}

	var encCfg zapcore.EncoderConfig
	if env == "prod" {
		encCfg = zap.NewProductionEncoderConfig()
	} else {
		encCfg = zap.NewDevelopmentEncoderConfig()
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var consoleEncoder zapcore.Encoder
	if env == "prod" {
		consoleEncoder = zapcore.NewJSONEncoder(encCfg)
	} else {
		consoleEncoder = zapcore.NewConsoleEncoder(encCfg)
	}

	cores := []zapcore.Core{
		zapcore.NewCore(consoleEncoder, zapcore.Lock(os.Stderr), lvl),
	}

	if file != "" {
		fileCfg := zap.NewProductionEncoderConfig()
		fileCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(fileCfg),
			zapcore.AddSync(&lumberjack.Logger{
				Filename:   file,
				MaxSize:    20, // MB
				MaxBackups: 5,
				MaxAge:     28, // дней
				LocalTime:  true,
			}),
			lvl,
		))
	}

	return &Zap{Logger: zap.New(zapcore.NewTee(cores...), zap.AddCaller())}, nil
}

// Nop нужен тестам и режимам без вывода.
func Nop() *Zap {
	return &Zap{Logger: zap.NewNop()}
}

// ForSite возвращает логгер с полями сайта и запуска.
func (z *Zap) ForSite(site, runID string) *zap.Logger {
	return z.With(zap.String("site", site), zap.String("run_id", runID))
}
