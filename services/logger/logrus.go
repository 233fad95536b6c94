package logsvc

import (
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/penahikmah/sekolah/core"
)

// NewLogrus builds the local logger. When conf.Log.FilePath is set, output also goes to a rotated file.
func NewLogrus(conf *core.Config) (*logrus.Logger, error) {
	lg := logrus.New()

	level, err := logrus.ParseLevel(conf.Log.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	lg.SetLevel(level)

	if conf.Log.Format == "json" {
		lg.SetFormatter(&logrus.JSONFormatter{})
	} else {
		lg.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	if conf.Log.FilePath != "" {
		if err = os.MkdirAll(filepath.Dir(conf.Log.FilePath), 0755); err != nil {
			return nil, errors.Wrap(err, "creating log directory")
		}
		rotated := &lumberjack.Logger{
			Filename:   conf.Log.FilePath,
			MaxSize:    conf.Log.MaxSize,
			MaxBackups: conf.Log.MaxBackups,
			MaxAge:     conf.Log.MaxAge,
			Compress:   conf.Log.Compress,
		}
		lg.SetOutput(io.MultiWriter(os.Stdout, rotated))
	}
	return lg, nil
}
