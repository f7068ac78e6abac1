package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"freshcart-api/middleware"
)

type Routes struct {
	Products *ProductHandler
	Cart     *CartHandler
	Checkout *CheckoutHandler
	Orders   *OrderHandler
	Auth     *AuthHandler
	Health   *HealthHandler

	Tokens        middleware.TokenValidator
	RateLimiter   *middleware.RateLimiter
	AllowedOrigin string
	Logger        *zap.Logger
}

// NewRouter mounts the storefront API under /api. CORS wraps the router so
// preflight requests are answered before route matching.
func NewRouter(rt Routes) http.Handler {
	router := mux.NewRouter()
	router.Use(middleware.RequestLogger(rt.Logger))
	router.Use(middleware.SecurityHeadersMiddleware)

	api := router.PathPrefix("/api").Subrouter()
	api.Use(middleware.OptionalAuth(rt.Tokens))
	if rt.RateLimiter != nil {
		api.Use(rt.RateLimiter.RateLimitMiddleware())
	}

	requireAuth := middleware.AuthMiddleware(rt.Tokens, rt.Logger)
	protected := func(fn http.HandlerFunc) http.Handler {
		return requireAuth(fn)
	}

	api.HandleFunc("/health", rt.Health.Health).Methods("GET")

	api.HandleFunc("/products", rt.Products.ListProducts).Methods("GET")
	api.HandleFunc("/products/{id}", rt.Products.GetProduct).Methods("GET")

	api.HandleFunc("/cart", rt.Cart.GetCart).Methods("GET")
	api.HandleFunc("/cart", rt.Cart.ClearCart).Methods("DELETE")
	api.HandleFunc("/cart/items", rt.Cart.AddItem).Methods("POST")
	api.HandleFunc("/cart/items/{id}/increment", rt.Cart.Increment).Methods("POST")
	api.HandleFunc("/cart/items/{id}/decrement", rt.Cart.Decrement).Methods("POST")
	api.HandleFunc("/cart/items/{id}", rt.Cart.SetQuantity).Methods("PUT")
	api.HandleFunc("/cart/items/{id}", rt.Cart.RemoveItem).Methods("DELETE")

	api.HandleFunc("/coupons/apply", rt.Checkout.ApplyCoupon).Methods("POST")
	api.HandleFunc("/coupons/applied", rt.Checkout.RemoveCoupon).Methods("DELETE")
	api.HandleFunc("/pincodes/{code}", rt.Checkout.CheckPinCode).Methods("GET")
	api.HandleFunc("/delivery-requests", rt.Checkout.RequestDelivery).Methods("POST")
	api.HandleFunc("/checkout/quote", rt.Checkout.Quote).Methods("GET")
	api.HandleFunc("/checkout/id", rt.Checkout.GenerateCheckoutID).Methods("GET")

	api.HandleFunc("/orders", rt.Orders.PlaceOrder).Methods("POST")
	api.Handle("/orders", protected(rt.Orders.ListOrders)).Methods("GET")
	api.Handle("/orders/{id}", protected(rt.Orders.GetOrder)).Methods("GET")

	authRouter := api.PathPrefix("/auth").Subrouter()
	authRouter.HandleFunc("/register", rt.Auth.Register).Methods("POST")
	authRouter.HandleFunc("/login", rt.Auth.Login).Methods("POST")
	authRouter.HandleFunc("/refresh", rt.Auth.RefreshToken).Methods("POST")
	authRouter.Handle("/me", protected(rt.Auth.Me)).Methods("GET")

	return middleware.CORS(rt.AllowedOrigin)(router)
}
