package handler

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"calevid/internal/domain"
	"calevid/pkg/credit"

	"github.com/gin-gonic/gin"
)

// paystackEvent is the webhook payload subset the credit flow reads.
type paystackEvent struct {
	Event string `json:"event"`
	Data  struct {
		Reference string `json:"reference"`
		Amount    int64  `json:"amount"` // minor units (kobo/cents)
		Status    string `json:"status"`
		Currency  string `json:"currency"`
		Customer  struct {
			Email string `json:"email"`
		} `json:"customer"`
	} `json:"data"`
}

// PaystackWebhookHandler authenticates provider notifications and hands
// successful charges to the credit applier. Paystack expects a fast 200 and
// redelivers on timeout, so the apply runs after the response is written.
type PaystackWebhookHandler struct {
	applier        credit.Applier
	secret         string // HMAC key, the Paystack account secret key
	pricePerCredit int64
	applyTimeout   time.Duration
	retryDelay     time.Duration
}

func NewPaystackWebhookHandler(applier credit.Applier, secret string, pricePerCredit int64, applyTimeout time.Duration) *PaystackWebhookHandler {
	return &PaystackWebhookHandler{
		applier:        applier,
		secret:         secret,
		pricePerCredit: pricePerCredit,
		applyTimeout:   applyTimeout,
		retryDelay:     2 * time.Second,
	}
}

// Handle processes one webhook delivery. The signature is computed over the
// exact raw body bytes; re-encoding the JSON first would change the hash
// input and reject valid events.
func (h *PaystackWebhookHandler) Handle(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	if !h.verifySignature(body, c.GetHeader("x-paystack-signature")) {
		log.Printf("[paystack webhook] invalid signature from %s", c.ClientIP())
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
		return
	}
	var event paystackEvent
	if err := json.Unmarshal(body, &event); err != nil {
		log.Printf("[paystack webhook] unparseable json: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	// Ack now; everything past this point is invisible to Paystack.
	c.JSON(http.StatusOK, gin.H{"received": true})

	if event.Event != domain.EventChargeSuccess || event.Data.Status != domain.ChargeStatusOK {
		log.Printf("[paystack webhook] ignoring event=%s status=%s", event.Event, event.Data.Status)
		return
	}
	email := strings.TrimSpace(event.Data.Customer.Email)
	credits := event.Data.Amount / 100 / h.pricePerCredit
	if email == "" || credits <= 0 {
		log.Printf("[paystack webhook] dropping reference=%s email=%q amount=%d: no credits to apply",
			event.Data.Reference, email, event.Data.Amount)
		return
	}

	go h.apply(event.Data.Reference, email, credits)
}

// apply delegates to the credit applier with a bounded timeout and a single
// retry. Paystack has already been acked, so a second failure is terminal
// for this delivery; the ledger fence makes the provider's own redelivery
// the recovery path.
func (h *PaystackWebhookHandler) apply(reference, email string, credits int64) {
	res, err := h.applyOnce(reference, email, credits)
	if err != nil {
		log.Printf("[paystack webhook] apply failed for %s, retrying once: %v", reference, err)
		time.Sleep(h.retryDelay)
		res, err = h.applyOnce(reference, email, credits)
	}
	if err != nil {
		log.Printf("[paystack webhook] apply failed for %s, giving up: %v", reference, err)
		return
	}
	if res.AlreadyProcessed {
		log.Printf("[paystack webhook] reference %s already processed", reference)
		return
	}
	log.Printf("[paystack webhook] applied %d credits to %s for %s (balance %d)",
		res.CreditsApplied, email, reference, res.NewBalance)
}

func (h *PaystackWebhookHandler) applyOnce(reference, email string, credits int64) (*credit.Result, error) {
	ctx, cancel := context.WithTimeout(context.Background(), h.applyTimeout)
	defer cancel()
	return h.applier.Apply(ctx, reference, email, credits)
}

func (h *PaystackWebhookHandler) verifySignature(body []byte, signature string) bool {
	mac := hmac.New(sha512.New, []byte(h.secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(signature), []byte(expected))
}
