package bootstrap

import (
	"encoding/json"
	"sync"

	locws "outletradar/internal/location/adapter/out/out_ws"
	locout "outletradar/internal/location/application/ports/out"
	"outletradar/internal/shared/logger"
	"outletradar/internal/shared/ws"
)

// sensorRegistry хранит WS-сенсоры по userID и маршрутизирует в них
// ответы position_response из WebSocket
type sensorRegistry struct {
	hub *ws.Hub
	log *logger.Logger

	mu      sync.Mutex
	sensors map[string]*locws.WSPositionSensor
}

func newSensorRegistry(hub *ws.Hub, log *logger.Logger) *sensorRegistry {
	return &sensorRegistry{
		hub:     hub,
		log:     log,
		sensors: make(map[string]*locws.WSPositionSensor),
	}
}

// For возвращает сенсор посетителя, создавая его при первом обращении
func (r *sensorRegistry) For(userID string) locout.PositionSensor {
	return r.get(userID)
}

// Route доставляет position_response в сенсор посетителя
func (r *sensorRegistry) Route(userID string, data json.RawMessage) {
	r.get(userID).HandleResponse(data)
}

func (r *sensorRegistry) get(userID string) *locws.WSPositionSensor {
	r.mu.Lock()
	defer r.mu.Unlock()
	sensor, ok := r.sensors[userID]
	if !ok {
		sensor = locws.NewWSPositionSensor(r.hub, userID, r.log)
		r.sensors[userID] = sensor
	}
	return sensor
}
