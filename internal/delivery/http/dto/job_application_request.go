package dto

type ChangeStatusRequest struct {
	Status string `json:"status"`
}

type PreviewRequest struct {
	URL string `json:"url"`
}

type MagicLinkRequest struct {
	Email      string `json:"email"`
	RedirectTo string `json:"redirect_to"`
}
