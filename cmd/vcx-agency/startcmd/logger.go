/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package startcmd

import (
	"fmt"
	"io"

	"github.com/hyperledger/aries-framework-go/component/log"
	spilog "github.com/hyperledger/aries-framework-go/spi/log"
	"github.com/sirupsen/logrus"
)

const (
	logFormatText = "text"
	logFormatJSON = "json"

	moduleField = "module"
)

// logrusProvider writes module logs through logrus. Levels are still filtered per module by the log package.
type logrusProvider struct {
	logger *logrus.Logger
}

func newLogrusProvider(format string, out io.Writer) (*logrusProvider, error) {
	l := logrus.New()
	l.SetOutput(out)
	l.SetLevel(logrus.DebugLevel)

	switch format {
	case logFormatText:
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case logFormatJSON:
		l.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, fmt.Errorf("log format [%s] not supported", format)
	}

	return &logrusProvider{logger: l}, nil
}

// GetLogger returns a logger tagged with module.
func (p *logrusProvider) GetLogger(module string) spilog.Logger {
	return p.logger.WithField(moduleField, module)
}

// setLogFormat replaces the built-in logger. It only takes effect before the first log output.
func setLogFormat(format string, out io.Writer) error {
	if format == "" {
		return nil
	}

	provider, err := newLogrusProvider(format, out)
	if err != nil {
		return err
	}

	log.Initialize(provider)

	return nil
}
