package types

import "time"

// SubscriptionStatus is the lifecycle state of one product subscription
type SubscriptionStatus string

const (
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionCanceled SubscriptionStatus = "canceled"
	SubscriptionNone     SubscriptionStatus = "none"
)

func (s SubscriptionStatus) String() string {
	return string(s)
}

// ProductSubscription is one product's subscription record, stored under
// products.<productID> in the per-customer subscription document
type ProductSubscription struct {
	ProductName      string             `json:"product_name" bson:"productName"`
	StripeCustomerID string             `json:"stripe_customer_id" bson:"stripeCustomerId"`
	Status           SubscriptionStatus `json:"status" bson:"status"`
	LastUpdated      time.Time          `json:"last_updated" bson:"lastUpdated"`
}
