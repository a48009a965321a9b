package ipc

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// Request — входящий IPC-запрос от панели управления.
// Формат совместим с клиентами discord-ext-ipc: имя маршрута, заголовки
// с секретом авторизации и произвольные данные маршрута.
type Request struct {
	Endpoint string            `json:"endpoint"`
	Headers  map[string]string `json:"headers"`
	Data     json.RawMessage   `json:"data"`
}

// Response — ответ IPC-сервера
type Response struct {
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
	Code  int         `json:"code"`
}

// RouteFunc обрабатывает один IPC-маршрут
type RouteFunc func(data json.RawMessage) (interface{}, error)

// Server — WebSocket IPC-сервер воркера. Через него панель управления
// запрашивает у воркера живое состояние (список сессий, счетчики),
// не обращаясь к базе.
type Server struct {
	secret   string
	upgrader websocket.Upgrader

	mu     sync.RWMutex
	routes map[string]RouteFunc
}

// NewServer создает IPC-сервер с заданным секретом авторизации
func NewServer(secret string) *Server {
	return &Server{
		secret: secret,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// IPC слушает только внутренний интерфейс, Origin не проверяем
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		routes: make(map[string]RouteFunc),
	}
}

// Route регистрирует обработчик маршрута
func (s *Server) Route(endpoint string, fn RouteFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.routes[endpoint] = fn
}

// ServeHTTP принимает WebSocket-соединение и обслуживает запросы до его закрытия
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[IPC] Ошибка установки соединения: %v", err)
		return
	}
	defer conn.Close()

	log.Printf("[IPC] Клиент %s подключился", conn.RemoteAddr())

	for {
		var req Request
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[IPC] Соединение с %s разорвано: %v", conn.RemoteAddr(), err)
			}
			return
		}

		resp := s.handle(&req)
		if err := conn.WriteJSON(resp); err != nil {
			log.Printf("[IPC] Ошибка отправки ответа %s: %v", conn.RemoteAddr(), err)
			return
		}
	}
}

// handle выполняет один IPC-запрос
func (s *Server) handle(req *Request) *Response {
	if s.secret != "" && req.Headers["Authorization"] != s.secret {
		log.Printf("[IPC] Отклонен запрос %q: неверный секрет", req.Endpoint)
		return &Response{Error: "invalid authorization", Code: http.StatusForbidden}
	}

	s.mu.RLock()
	fn, ok := s.routes[req.Endpoint]
	s.mu.RUnlock()

	if !ok {
		return &Response{Error: "unknown endpoint", Code: http.StatusNotFound}
	}

	data, err := fn(req.Data)
	if err != nil {
		log.Printf("[IPC] Ошибка маршрута %q: %v", req.Endpoint, err)
		return &Response{Error: err.Error(), Code: http.StatusInternalServerError}
	}
	return &Response{Data: data, Code: http.StatusOK}
}
