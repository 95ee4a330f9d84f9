package connector

import (
	"fmt"

	"payhub/internal/domain/payment"
)

// Validation lets a connector reject requests it can never serve before
// anything is built.
type Validation interface {
	ValidateCaptureMethod(cm payment.CaptureMethod) error
}

// AutomaticCaptureOnly accepts automatic capture and nothing else.
type AutomaticCaptureOnly struct {
	Connector string
}

func (v AutomaticCaptureOnly) ValidateCaptureMethod(cm payment.CaptureMethod) error {
	if cm == "" || cm == payment.CaptureAutomatic {
		return nil
	}
	return NotSupported(fmt.Sprintf("capture method %s", cm), v.Connector)
}

// CaptureMethods accepts the listed capture methods.
type CaptureMethods struct {
	Connector string
	Allowed   []payment.CaptureMethod
}

func (v CaptureMethods) ValidateCaptureMethod(cm payment.CaptureMethod) error {
	if cm == "" {
		cm = payment.CaptureAutomatic
	}
	for _, a := range v.Allowed {
		if a == cm {
			return nil
		}
	}
	return NotSupported(fmt.Sprintf("capture method %s", cm), v.Connector)
}
