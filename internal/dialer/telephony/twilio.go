package telephony

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"dialcrm_backend/platform/config"
	"dialcrm_backend/platform/logger"

	"github.com/google/uuid"
)

const twilioAPIBase = "https://api.twilio.com/2010-04-01"

// TwilioProvider places calls through the Twilio REST API. Call completion is
// driven by Twilio status callbacks routed into HandleStatusCallback by the
// dialer's webhook handler; CheckCallStatus polls the Calls resource as a
// backstop.
type TwilioProvider struct {
	accountSID  string
	authToken   string
	fromNumber  string
	callbackURL string
	httpClient  *http.Client
	log         *logger.Logger

	mu          sync.Mutex
	activeCalls map[uuid.UUID]string // session lead id -> provider call SID
	callLeads   map[string]uuid.UUID
	handlers    map[int]DisconnectHandler
	nextHandler int
}

// NewTwilioProvider creates a Twilio-backed provider.
func NewTwilioProvider(cfg config.TelephonyConfig, log *logger.Logger) *TwilioProvider {
	return &TwilioProvider{
		accountSID:  cfg.GetTwilioAccountSID(),
		authToken:   cfg.GetTwilioAuthToken(),
		fromNumber:  cfg.GetTwilioFromNumber(),
		callbackURL: cfg.GetTwilioStatusCallbackURL(),
		httpClient:  &http.Client{Timeout: 15 * time.Second},
		log:         log,
		activeCalls: make(map[uuid.UUID]string),
		callLeads:   make(map[string]uuid.UUID),
		handlers:    make(map[int]DisconnectHandler),
	}
}

func (p *TwilioProvider) Name() string { return "twilio" }

// InitializeDevice verifies the account credentials with a lightweight fetch.
func (p *TwilioProvider) InitializeDevice(ctx context.Context) error {
	endpoint := fmt.Sprintf("%s/Accounts/%s.json", twilioAPIBase, p.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.SetBasicAuth(p.accountSID, p.authToken)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("telephony: account check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telephony: account check returned %d", resp.StatusCode)
	}
	return nil
}

type twilioCallResponse struct {
	SID     string `json:"sid"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// MakeCall places an outbound call via the Calls resource.
func (p *TwilioProvider) MakeCall(ctx context.Context, callReq CallRequest) (CallResult, error) {
	form := url.Values{}
	form.Set("To", callReq.PhoneNumber)
	form.Set("From", p.fromNumber)
	form.Set("Twiml", "<Response><Pause length=\"1\"/></Response>")
	if p.callbackURL != "" {
		form.Set("StatusCallback", p.callbackURL)
		form.Set("StatusCallbackEvent", "completed")
	}

	endpoint := fmt.Sprintf("%s/Accounts/%s/Calls.json", twilioAPIBase, p.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return CallResult{}, err
	}
	req.SetBasicAuth(p.accountSID, p.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return CallResult{}, fmt.Errorf("telephony: place call: %w", err)
	}
	defer resp.Body.Close()

	var body twilioCallResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return CallResult{}, fmt.Errorf("telephony: decode call response: %w", err)
	}

	if resp.StatusCode != http.StatusCreated || body.SID == "" {
		msg := body.Message
		if msg == "" {
			msg = fmt.Sprintf("call creation returned %d", resp.StatusCode)
		}
		return CallResult{Success: false, Error: msg}, nil
	}

	p.mu.Lock()
	p.activeCalls[callReq.SessionLeadID] = body.SID
	p.callLeads[body.SID] = callReq.SessionLeadID
	p.mu.Unlock()

	return CallResult{Success: true, ProviderCallID: body.SID}, nil
}

// CheckCallStatus polls the Calls resource for the lead's active call.
func (p *TwilioProvider) CheckCallStatus(ctx context.Context, sessionLeadID uuid.UUID) (CallStatus, error) {
	p.mu.Lock()
	callSID, ok := p.activeCalls[sessionLeadID]
	p.mu.Unlock()
	if !ok {
		return StatusUnknown, nil
	}

	endpoint := fmt.Sprintf("%s/Accounts/%s/Calls/%s.json", twilioAPIBase, p.accountSID, callSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return StatusUnknown, err
	}
	req.SetBasicAuth(p.accountSID, p.authToken)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return StatusUnknown, fmt.Errorf("telephony: fetch call: %w", err)
	}
	defer resp.Body.Close()

	var body twilioCallResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return StatusUnknown, fmt.Errorf("telephony: decode call: %w", err)
	}

	return mapTwilioStatus(body.Status), nil
}

// OnDisconnect registers a handler for terminal call events.
func (p *TwilioProvider) OnDisconnect(handler DisconnectHandler) func() {
	p.mu.Lock()
	id := p.nextHandler
	p.nextHandler++
	p.handlers[id] = handler
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		delete(p.handlers, id)
		p.mu.Unlock()
	}
}

// HandleStatusCallback consumes a Twilio status callback. Terminal statuses
// fire the registered disconnect handlers and release call tracking.
func (p *TwilioProvider) HandleStatusCallback(callSID, rawStatus string) {
	status := mapTwilioStatus(rawStatus)
	if !status.Ended() {
		return
	}

	p.mu.Lock()
	leadID, tracked := p.callLeads[callSID]
	if tracked {
		delete(p.callLeads, callSID)
		delete(p.activeCalls, leadID)
	}
	handlers := make([]DisconnectHandler, 0, len(p.handlers))
	for _, h := range p.handlers {
		handlers = append(handlers, h)
	}
	p.mu.Unlock()

	if !tracked {
		return
	}

	event := DisconnectEvent{
		SessionLeadID:  leadID,
		ProviderCallID: callSID,
		Status:         status,
	}
	for _, h := range handlers {
		h(event)
	}
}

func mapTwilioStatus(raw string) CallStatus {
	switch raw {
	case "queued", "initiated":
		return StatusQueued
	case "ringing":
		return StatusRinging
	case "in-progress":
		return StatusInProgress
	case "completed":
		return StatusCompleted
	case "busy":
		return StatusBusy
	case "no-answer":
		return StatusNoAnswer
	case "failed":
		return StatusFailed
	case "canceled":
		return StatusCanceled
	default:
		return StatusUnknown
	}
}

var _ Provider = (*TwilioProvider)(nil)
