package app

import (
	"bytes"
	"io"

	"ember/hal"

	"github.com/sirupsen/logrus"
)

// lineWriter hands each complete log line to the HAL logger.
type lineWriter struct {
	l hal.Logger
}

func (w lineWriter) Write(p []byte) (int, error) {
	n := len(p)
	for len(p) > 0 {
		i := bytes.IndexByte(p, '\n')
		if i < 0 {
			w.l.WriteLineBytes(p)
			break
		}
		w.l.WriteLineBytes(p[:i])
		p = p[i+1:]
	}
	return n, nil
}

func newLogger(l hal.Logger, lvl logrus.Level) *logrus.Logger {
	log := logrus.New()
	if l == nil {
		log.SetOutput(io.Discard)
	} else {
		log.SetOutput(lineWriter{l: l})
	}
	log.SetFormatter(&logrus.TextFormatter{DisableColors: true, DisableTimestamp: true})
	log.SetLevel(lvl)
	return log
}
