package models

// CurrentUser is the signed-in driver or paramedic whose wallet is shown.
type CurrentUser struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	UserType UserType `json:"userType"`
}
