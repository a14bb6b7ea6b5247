package logging

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Adapter exposes a logrus entry as a key/value logger.
type Adapter struct {
	Entry *logrus.Entry
}

// NewAdapter returns an Adapter writing to the named logger.
func NewAdapter(name string) *Adapter {
	return &Adapter{Entry: Named(name)}
}

// Info logs an info message.
func (a *Adapter) Info(msg string, keysAndValues ...interface{}) {
	a.Entry.WithFields(fields(keysAndValues)).Info(msg)
}

// Error logs an error.
func (a *Adapter) Error(err error, msg string, keysAndValues ...interface{}) {
	a.Entry.WithFields(fields(keysAndValues)).WithError(err).Error(msg)
}

func fields(keysAndValues []interface{}) logrus.Fields {
	f := make(logrus.Fields, len(keysAndValues)/2)
	for i := 0; i < len(keysAndValues); i += 2 {
		key := fmt.Sprint(keysAndValues[i])
		if i+1 == len(keysAndValues) {
			f[key] = "(missing)"
			break
		}
		f[key] = keysAndValues[i+1]
	}
	return f
}
