package events

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/anudishu/promote-cleanup/internal/logger"
	"github.com/anudishu/promote-cleanup/internal/workflow"
)

// Trigger sources
const (
	SourcePubSub = "pubsub"
	SourceNATS   = "nats"
	SourceCLI    = "cli"
)

// Attribute keys carried by a triggering message
const (
	AttrImageID            = "image_id"
	AttrScanResult         = "scan_result"
	AttrValidationInstance = "validation_instance"
	AttrSkipDestroy        = "skip_destroy"
	AttrSkipPromotion      = "skip_promotion"
)

// ErrMalformedMessage is returned when a message body cannot be decoded
var ErrMalformedMessage = errors.New("malformed message")

// Message is a Pub/Sub style message: an opaque base64 payload plus string attributes
type Message struct {
	Data        string            `json:"data,omitempty"`
	Attributes  map[string]string `json:"attributes,omitempty"`
	MessageID   string            `json:"messageId,omitempty"`
	PublishTime string            `json:"publishTime,omitempty"`
}

// PushEnvelope is the body of a Pub/Sub push delivery
type PushEnvelope struct {
	Message      Message `json:"message"`
	Subscription string  `json:"subscription,omitempty"`
}

// DecodePush decodes a push delivery body
func DecodePush(body []byte) (*PushEnvelope, error) {
	var env PushEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	return &env, nil
}

// DecodeMessage decodes a bare message body as published on the queue
func DecodeMessage(body []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	return &msg, nil
}

// ParseMessage converts the message attributes into a typed request. The payload is decoded
// for the log only and never drives the workflow.
func ParseMessage(msg Message) workflow.Request {
	if msg.Data != "" {
		data, err := base64.StdEncoding.DecodeString(msg.Data)
		if err != nil {
			logger.Warnf("Could not decode message data: %v", err)
		} else {
			logger.Infof("Received message: %s", data)
		}
	}
	return RequestFromAttributes(msg.Attributes)
}

// RequestFromAttributes builds a request from string attributes. Missing attributes take
// their zero value; the skip flags are true only for a case-insensitive "true".
func RequestFromAttributes(attrs map[string]string) workflow.Request {
	return workflow.Request{
		ImageID:            attrs[AttrImageID],
		ScanResult:         workflow.ScanResult(attrs[AttrScanResult]),
		ValidationInstance: attrs[AttrValidationInstance],
		SkipDestroy:        parseFlag(attrs[AttrSkipDestroy]),
		SkipPromotion:      parseFlag(attrs[AttrSkipPromotion]),
	}
}

// Attributes is the inverse of RequestFromAttributes
func Attributes(req workflow.Request) map[string]string {
	return map[string]string{
		AttrImageID:            req.ImageID,
		AttrScanResult:         string(req.ScanResult),
		AttrValidationInstance: req.ValidationInstance,
		AttrSkipDestroy:        fmt.Sprintf("%t", req.SkipDestroy),
		AttrSkipPromotion:      fmt.Sprintf("%t", req.SkipPromotion),
	}
}

// parseFlag accepts "true" in any case. Surrounding whitespace makes the flag false.
func parseFlag(v string) bool {
	return strings.EqualFold(v, "true")
}
