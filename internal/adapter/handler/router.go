package handler

import "net/http"

// Router holds every HTTP handler. Nil handlers are not mounted.
type Router struct {
	Prices       *PriceHandler
	Portfolio    *PortfolioHandler
	Subscription *SubscriptionHandler
	Mode         *ModeHandler
	Health       *HealthHandler
	Stream       http.Handler
}

func (rt Router) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	if rt.Prices != nil {
		mux.HandleFunc("GET /prices", rt.Prices.ListPrices)
		mux.HandleFunc("GET /prices/{symbol}", rt.Prices.GetPrice)
		mux.HandleFunc("GET /changed", rt.Prices.Changed)
	}
	if rt.Portfolio != nil {
		mux.HandleFunc("GET /portfolio", rt.Portfolio.Summary)
		mux.HandleFunc("GET /portfolio/holdings/{symbol}", rt.Portfolio.Holding)
		mux.HandleFunc("GET /portfolio/lots", rt.Portfolio.Lots)
		mux.HandleFunc("GET /portfolio/report", rt.Portfolio.Report)
	}
	if rt.Subscription != nil {
		mux.HandleFunc("GET /subscription", rt.Subscription.Get)
		mux.HandleFunc("PUT /subscription", rt.Subscription.Put)
	}
	if rt.Mode != nil {
		mux.HandleFunc("GET /mode", rt.Mode.Get)
		mux.HandleFunc("POST /mode/{mode}", rt.Mode.Switch)
	}
	if rt.Health != nil {
		mux.HandleFunc("GET /health", rt.Health.Check)
	}
	if rt.Stream != nil {
		mux.Handle("GET /ws", rt.Stream)
	}
	return mux
}
