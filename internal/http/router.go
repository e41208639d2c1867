package httpapi

import (
	"net/http"
	"strings"

	"go.uber.org/zap"
)

const apiPrefix = "/bridge/api/v1"

// Router 使用标准库 http.ServeMux（避免引入第三方路由依赖）
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

// HandleHandler 支持 http.Handler 接口（用于 /metrics 等）
func (r *Router) HandleHandler(pattern string, h http.Handler) {
	r.mux.Handle(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// RegisterTripRoutes 注册行程路由
func (r *Router) RegisterTripRoutes(t *TripHandler) {
	r.Handle(apiPrefix+"/trips/start", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		t.StartTrip(w, req)
	})

	r.Handle(apiPrefix+"/trips/active", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		t.GetActiveTrip(w, req)
	})

	r.Handle(apiPrefix+"/trips/export", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		t.ExportTrips(w, req)
	})

	r.Handle(apiPrefix+"/trips", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		t.ListTrips(w, req)
	})

	// trips/{id}, trips/{id}/end, trips/{id}/cancel
	r.Handle(apiPrefix+"/trips/", func(w http.ResponseWriter, req *http.Request) {
		rest := strings.TrimPrefix(req.URL.Path, apiPrefix+"/trips/")
		parts := strings.Split(rest, "/")

		switch {
		case len(parts) == 1 && parts[0] != "":
			if req.Method != http.MethodGet {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			t.GetTrip(w, req, parts[0])
		case len(parts) == 2 && parts[1] == "end":
			if req.Method != http.MethodPost {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			t.EndTrip(w, req, parts[0])
		case len(parts) == 2 && parts[1] == "cancel":
			if req.Method != http.MethodPost {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			t.CancelTrip(w, req, parts[0])
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
}

// RegisterTelemetryRoutes 注册遥测查询路由
func (r *Router) RegisterTelemetryRoutes(t *TelemetryHandler) {
	r.Handle(apiPrefix+"/telemetry/latest", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		t.GetLatest(w, req)
	})

	r.Handle(apiPrefix+"/telemetry/stats", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		t.GetStats(w, req)
	})
}

// RegisterVehicleRoutes 注册车辆状态路由
func (r *Router) RegisterVehicleRoutes(v *VehicleHandler) {
	// vehicles/{id}, vehicles/{id}/status
	r.Handle(apiPrefix+"/vehicles/", func(w http.ResponseWriter, req *http.Request) {
		rest := strings.TrimPrefix(req.URL.Path, apiPrefix+"/vehicles/")
		parts := strings.Split(rest, "/")

		switch {
		case len(parts) == 1 && parts[0] != "":
			if req.Method != http.MethodGet {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			v.GetVehicle(w, req, parts[0])
		case len(parts) == 2 && parts[1] == "status":
			if req.Method != http.MethodPut {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			v.UpdateStatus(w, req, parts[0])
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
}

// RegisterWaypointRoutes 注册路径点路由
func (r *Router) RegisterWaypointRoutes(wp *WaypointHandler) {
	r.Handle(apiPrefix+"/waypoints", func(w http.ResponseWriter, req *http.Request) {
		switch req.Method {
		case http.MethodGet:
			wp.ListWaypoints(w, req)
		case http.MethodPost:
			wp.CreateWaypoint(w, req)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})

	r.Handle(apiPrefix+"/waypoints/", func(w http.ResponseWriter, req *http.Request) {
		id := strings.TrimPrefix(req.URL.Path, apiPrefix+"/waypoints/")
		if id == "" || strings.Contains(id, "/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		switch req.Method {
		case http.MethodGet:
			wp.GetWaypoint(w, req, id)
		case http.MethodPut:
			wp.UpdateWaypoint(w, req, id)
		case http.MethodDelete:
			wp.DeleteWaypoint(w, req, id)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
}

// RegisterLiveRoutes 注册实时会话路由
func (r *Router) RegisterLiveRoutes(l *LiveHandler) {
	r.Handle(apiPrefix+"/live", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		l.Serve(w, req)
	})
}

// RegisterHealthRoutes 注册健康检查路由
func (r *Router) RegisterHealthRoutes(h *HealthHandler) {
	r.Handle("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.Healthz(w, req)
	})
}
