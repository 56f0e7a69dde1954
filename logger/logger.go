package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
)

// init mirrors every log line to stdout and a daily file under LOG_DIR
// (default log/app)
func init() {
	dir := os.Getenv("LOG_DIR")
	if dir == "" {
		dir = filepath.Join("log", "app")
	}

	var out io.Writer = os.Stdout
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		fmt.Println("❌ Could not create log directory:", err)
	} else {
		fileName := filepath.Join(dir, fmt.Sprintf("app_%s.log", time.Now().Format("02-01-2006")))
		logFile, err := os.OpenFile(fileName, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			fmt.Println("❌ Could not open log file:", err)
		} else {
			out = io.MultiWriter(os.Stdout, logFile)
		}
	}

	log.SetOutput(out)
	log.SetLevel(ParseLevel(os.Getenv("LOG_LEVEL")))
	log.Info("🚀 Logger initialized successfully!")
}

// ParseLevel maps a LOG_LEVEL value to a fiber log level, defaulting to info
func ParseLevel(level string) log.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return log.LevelDebug
	case "warn", "warning":
		return log.LevelWarn
	case "error":
		return log.LevelError
	default:
		return log.LevelInfo
	}
}

func Success(message string) {
	log.Info("✅ " + message)
}

func Error(message string, err error) {
	if err != nil {
		log.Error("❌ " + message + ": " + err.Error())
	} else {
		log.Error("❌ " + message)
	}
}

func Warning(message string) {
	log.Warn("⚠️ " + message)
}

func Debug(message string) {
	log.Debug("🐛 " + message)
}

func Info(message string) {
	log.Info("ℹ️ " + message)
}

func Fatal(message string) {
	log.Fatal("💥 " + message)
	os.Exit(1)
}

func Printf(format string, args ...interface{}) {
	log.Info(fmt.Sprintf("📝 "+format, args...))
}
