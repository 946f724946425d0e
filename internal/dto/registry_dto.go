package dto

type CreateUnitRequest struct {
	Name string `json:"name" validate:"required,max=200"`
}

type CreateMethodRequest struct {
	Name string `json:"name" validate:"required,max=300"`
}

type UnitResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type MethodResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Position int    `json:"position"`
}
