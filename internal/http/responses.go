package http

import (
	"time"

	"grocery-store/internal/domain"
	"grocery-store/internal/service"
	"grocery-store/internal/storage"
)

type SessionResponse struct {
	Token string `json:"token"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Guest bool   `json:"guest"`
}

type ProductResponse struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Price   string `json:"price"`
	Barcode int64  `json:"barcode"`
}

type LineResponse struct {
	Product  ProductResponse `json:"product"`
	Quantity int             `json:"quantity"`
	Subtotal string          `json:"subtotal"`
}

type CartResponse struct {
	Lines []LineResponse `json:"lines"`
	Total string         `json:"total"`
}

type OrderResponse struct {
	UserName  string         `json:"user_name"`
	UserEmail string         `json:"user_email"`
	CreatedAt string         `json:"created_at"`
	Lines     []LineResponse `json:"lines"`
	Total     string         `json:"total"`
}

type StorageObjectResponse struct {
	Key          string  `json:"key"`
	Size         int64   `json:"size"`
	LastModified *string `json:"last_modified,omitempty"`
}

func productToResponse(p domain.Product) ProductResponse {
	return ProductResponse{
		ID:      p.ID,
		Name:    p.Name,
		Price:   p.Price.StringFixed(2),
		Barcode: p.Barcode,
	}
}

func productsToResponse(products []domain.Product) []ProductResponse {
	resp := make([]ProductResponse, len(products))
	for i := range products {
		resp[i] = productToResponse(products[i])
	}
	return resp
}

func productPtrsToResponse(products []*domain.Product) []ProductResponse {
	resp := make([]ProductResponse, len(products))
	for i, p := range products {
		resp[i] = productToResponse(*p)
	}
	return resp
}

func linesToResponse(lines []domain.OrderLine) []LineResponse {
	resp := make([]LineResponse, len(lines))
	for i, line := range lines {
		resp[i] = LineResponse{
			Product:  productToResponse(line.Product),
			Quantity: line.Quantity,
			Subtotal: line.Subtotal().StringFixed(2),
		}
	}
	return resp
}

func cartToResponse(view service.CartView) CartResponse {
	return CartResponse{
		Lines: linesToResponse(view.Lines),
		Total: view.Total.StringFixed(2),
	}
}

func orderToResponse(order domain.Order) OrderResponse {
	return OrderResponse{
		UserName:  order.UserName,
		UserEmail: order.UserEmail,
		CreatedAt: order.CreatedAt.Format(time.RFC3339),
		Lines:     linesToResponse(order.Lines),
		Total:     order.Total().StringFixed(2),
	}
}

func objectToResponse(obj storage.ObjectInfo) StorageObjectResponse {
	resp := StorageObjectResponse{
		Key:  obj.Key,
		Size: obj.Size,
	}
	if obj.LastModified != nil && !obj.LastModified.IsZero() {
		v := obj.LastModified.Format(time.RFC3339)
		resp.LastModified = &v
	}
	return resp
}
