package dto

type DataChangedRequest struct {
	Source string `json:"source"`
}

type DataChangedResponse struct {
	Status string `json:"status"`
}
