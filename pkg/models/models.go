package models

// SearchResponse is the body returned by the trademark search endpoint
type SearchResponse struct {
	TradeMarks []TradeMark `json:"tradeMarks"`
}

// TradeMark is one search hit as the API returns it
type TradeMark struct {
	ST13              string `json:"ST13"`
	DetailImageURI    string `json:"detailImageURI"`
	MarkImageURI      string `json:"markImageURI"`
	TMName            string `json:"tmName"`
	TMOffice          string `json:"tmOffice"`
	ApplicationNumber string `json:"applicationNumber"`
	ApplicationDate   string `json:"applicationDate"`
	TradeMarkStatus   string `json:"tradeMarkStatus"`
	NiceClass         any    `json:"niceClass"`
}

// Item is a search hit reduced to what the crawler needs
type Item struct {
	ID                string `json:"id"`
	ImageURL          string `json:"image_url"`
	Name              string `json:"name,omitempty"`
	Office            string `json:"office,omitempty"`
	ApplicationNumber string `json:"application_number,omitempty"`
	ApplicationDate   string `json:"application_date,omitempty"`
	Status            string `json:"status,omitempty"`
}

// Page is one page of results for a query
type Page struct {
	Number int
	Items  []Item
}

// DownloadTask is a single image to fetch
type DownloadTask struct {
	ItemID   string
	ImageURL string
	Item     Item
}

// ToItem converts an API hit to an Item.
func (tm TradeMark) ToItem() Item {
	return Item{
		ID:                tm.ST13,
		ImageURL:          tm.DetailImageURI,
		Name:              tm.TMName,
		Office:            tm.TMOffice,
		ApplicationNumber: tm.ApplicationNumber,
		ApplicationDate:   tm.ApplicationDate,
		Status:            tm.TradeMarkStatus,
	}
}

// TasksFromItems builds the download batch for a page.
// Items with no id or no image URL are left out.
func TasksFromItems(items []Item) []DownloadTask {
	tasks := make([]DownloadTask, 0, len(items))
	for _, item := range items {
		if item.ID == "" || item.ImageURL == "" {
			continue
		}
		tasks = append(tasks, DownloadTask{
			ItemID:   item.ID,
			ImageURL: item.ImageURL,
			Item:     item,
		})
	}
	return tasks
}
