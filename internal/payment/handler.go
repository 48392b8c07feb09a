package payment

import (
	"errors"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/ocheikhi/vehinspect-backend/middleware"
)

type Handler struct {
	svc     Service
	okURL   string
	failURL string
}

func NewHandler(svc Service, okURL, failURL string) *Handler {
	return &Handler{svc: svc, okURL: okURL, failURL: failURL}
}

// InitiatePayment returns an HTML page that posts the customer straight to
// the gateway. The hidden fields are already signed server side.
func (h *Handler) InitiatePayment(c *gin.Context) {
	bookingID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid booking ID"})
		return
	}

	form, err := h.svc.InitiatePayment(
		c.Request.Context(),
		middleware.GetUserID(c),
		c.GetString("email"),
		uint(bookingID),
		middleware.GetIPFromContext(c),
	)
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "booking not found"})
		case errors.Is(err, ErrNotOwner):
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		case errors.Is(err, ErrBookingNotPayable):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, ErrGatewayNotConfigured):
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	if c.GetHeader("Accept") == "application/json" {
		c.JSON(http.StatusOK, gin.H{
			"data":    form,
			"success": true,
		})
		return
	}

	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(renderAutoSubmitForm(form)))
}

// Callback receives the server-to-server notification from the gateway.
// It is unauthenticated by nature; the hash check inside ProcessCallback
// is the authentication.
func (h *Handler) Callback(c *gin.Context) {
	params := collectParams(c)

	result, err := h.svc.ProcessCallback(c.Request.Context(), params, middleware.GetIPFromContext(c))
	if err != nil {
		if errors.Is(err, ErrUnknownOrder) {
			c.Redirect(http.StatusSeeOther, h.failURL+"?code=UNKNOWN_ORDER")
			return
		}
		c.Redirect(http.StatusSeeOther, h.failURL+"?code=ERROR")
		return
	}

	if result.Approved {
		c.Redirect(http.StatusSeeOther, fmt.Sprintf("%s?booking=%s", h.okURL, url.QueryEscape(result.BookingNumber)))
		return
	}
	c.Redirect(http.StatusSeeOther, fmt.Sprintf("%s?booking=%s&code=%s", h.failURL, url.QueryEscape(result.BookingNumber), url.QueryEscape(result.ResponseCode)))
}

func (h *Handler) GetPaymentForBooking(c *gin.Context) {
	bookingID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid booking ID"})
		return
	}

	isAdmin := middleware.GetRole(c) == middleware.RoleAdmin
	p, err := h.svc.GetPaymentForBooking(c.Request.Context(), middleware.GetUserID(c), isAdmin, uint(bookingID))
	if err != nil {
		if errors.Is(err, ErrNotOwner) {
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "payment not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":    p,
		"success": true,
	})
}

// collectParams flattens the posted form, falling back to the query string
// for gateways that call back with GET.
func collectParams(c *gin.Context) map[string]string {
	params := make(map[string]string)
	if err := c.Request.ParseForm(); err == nil {
		for k, v := range c.Request.PostForm {
			if len(v) > 0 {
				params[k] = v[0]
			}
		}
	}
	if len(params) == 0 {
		for k, v := range c.Request.URL.Query() {
			if len(v) > 0 {
				params[k] = v[0]
			}
		}
	}
	return params
}

func renderAutoSubmitForm(form *CheckoutForm) string {
	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html><html><head><title>Redirecting to payment...</title></head>")
	sb.WriteString("<body onload=\"document.forms[0].submit()\">")
	sb.WriteString(fmt.Sprintf("<form method=\"POST\" action=%q>", form.GatewayURL))
	for k, v := range form.Fields {
		sb.WriteString(fmt.Sprintf("<input type=\"hidden\" name=%q value=%q>", html.EscapeString(k), html.EscapeString(v)))
	}
	sb.WriteString("<noscript><button type=\"submit\">Continue to payment</button></noscript>")
	sb.WriteString("</form></body></html>")
	return sb.String()
}
