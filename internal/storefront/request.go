package storefront

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/order"
)

var ErrInvalidRequest = errors.New("invalid request")

const dateLayout = "2006-01-02"

var expiryPattern = regexp.MustCompile(`^(0[1-9]|1[0-2])/[0-9]{2}$`)

type CheckoutRequest struct {
	Address1             string `json:"address1" validate:"required,max=100"`
	Address2             string `json:"address2" validate:"max=100"`
	Country              string `json:"country" validate:"required,max=50"`
	State                string `json:"state" validate:"required,max=50"`
	ZipCode              string `json:"zipCode" validate:"required,max=20"`
	DeliveryInstructions string `json:"deliveryInstructions" validate:"max=500"`

	PaymentType string `json:"paymentType" validate:"required,oneof=credit debit"`
	NameOnCard  string `json:"nameOnCard" validate:"required,max=100"`
	CardNumber  string `json:"cardNumber" validate:"required,numeric,min=12,max=19"`
	Expiration  string `json:"expiration" validate:"required,expiry"`
	CVV         string `json:"cvv" validate:"required,numeric,min=3,max=4"`

	DeliveryDate     string `json:"deliveryDate" validate:"required,datetime=2006-01-02"`
	DeliveryTimeslot string `json:"deliveryTimeslot" validate:"required,timeslot"`
}

type RescheduleRequest struct {
	DeliveryDate     string `json:"deliveryDate" validate:"required,datetime=2006-01-02"`
	DeliveryTimeslot string `json:"deliveryTimeslot" validate:"required,timeslot"`
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("expiry", func(fl validator.FieldLevel) bool {
		return expiryPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("timeslot", func(fl validator.FieldLevel) bool {
		return order.Timeslot(fl.Field().String()).Valid()
	})
	return v
}

// validationError flattens validator output into a single ErrInvalidRequest.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: failed %s=%s", fe.Field(), fe.Tag(), fe.Param()))
			continue
		}
		msgs = append(msgs, fmt.Sprintf("%s: failed %s", fe.Field(), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", ErrInvalidRequest, strings.Join(msgs, "; "))
}

// parseDeliveryDate rejects dates before the calendar day of now.
func parseDeliveryDate(s string, now time.Time) (time.Time, error) {
	d, err := time.ParseInLocation(dateLayout, s, now.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: deliveryDate: %v", ErrInvalidRequest, err)
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if d.Before(today) {
		return time.Time{}, fmt.Errorf("%w: deliveryDate %s is in the past", ErrInvalidRequest, s)
	}
	return d, nil
}

func lastFour(card string) string {
	if len(card) <= 4 {
		return card
	}
	return card[len(card)-4:]
}
