package domain

// DateCount is the workload of a single date.
type DateCount struct {
	Date          Date `json:"date"`
	TotalQuantity int  `json:"total_quantity"`
	Deliveries    int  `json:"deliveries"`
	Customers     int  `json:"customers"`
}

type ProductTotal struct {
	ProductName string `json:"product_name"`
	Category    string `json:"category"`
	Quantity    int    `json:"quantity"`
}

type CategoryTotal struct {
	Category string  `json:"category"`
	Quantity int     `json:"quantity"`
	Percent  float64 `json:"percent"`
}

type DeliveryGroup struct {
	Date            Date     `json:"date"`
	AddressKey      string   `json:"address_key"`
	Address         Address  `json:"address"`
	TotalQuantity   int      `json:"total_quantity"`
	SubscriptionIDs []string `json:"subscription_ids"`
}

// Totals is a product and category breakdown for one scope.
type Totals struct {
	Range      DateRange       `json:"range"`
	Products   []ProductTotal  `json:"products"`
	Categories []CategoryTotal `json:"categories"`
}

// DataQuality reports how much of a projection had to be degraded.
type DataQuality struct {
	SkippedItems []SkippedItem `json:"skipped_items"`
	Placeholders int           `json:"placeholders"`
}

// DashboardResponse is anchored on Date, which is today unless the request picked a day.
// SelectedDay and NextDay count Date and the day after it.
type DashboardResponse struct {
	TeamID         string          `json:"team_id"`
	Date           Date            `json:"date"`
	SelectedDay    DateCount       `json:"selected_day"`
	NextDay        DateCount       `json:"next_day"`
	Day            Totals          `json:"day"`
	Week           Totals          `json:"week"`
	NextDeliveries []DeliveryGroup `json:"next_deliveries"`
	DataQuality    DataQuality     `json:"data_quality"`
}

type ProductionDay struct {
	Date          Date           `json:"date"`
	TotalQuantity int            `json:"total_quantity"`
	Deliveries    int            `json:"deliveries"`
	Products      []ProductTotal `json:"products"`
}

type ProductionResponse struct {
	TeamID      string          `json:"team_id"`
	Range       DateRange       `json:"range"`
	Days        []ProductionDay `json:"days"`
	Totals      Totals          `json:"totals"`
	DataQuality DataQuality     `json:"data_quality"`
}

type UpcomingResponse struct {
	CustomerID  string          `json:"customer_id"`
	Range       DateRange       `json:"range"`
	Deliveries  []DeliveryGroup `json:"deliveries"`
	DataQuality DataQuality     `json:"data_quality"`
}
