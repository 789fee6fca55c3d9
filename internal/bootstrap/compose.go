// ============================================================================
// BOOTSTRAP (Compose Root)
// ============================================================================
//
// 📦 НАЗНАЧЕНИЕ:
// Этот файл — "точка сборки" всего Outlet Service. Здесь мы:
// 1. Создаем все зависимости (БД, RabbitMQ, WebSocket)
// 2. Собираем Use Cases с их зависимостями
// 3. Связываем адаптеры с Use Cases
// 4. Запускаем HTTP сервер и фоновые процессы
//
// 💡 ПРИНЦИП: Dependency Injection Container
// Все зависимости создаются в одном месте, затем передаются в конструкторы.
// Это позволяет легко заменить реализацию (например, подменить Gemini
// на удалённый HTTP чат-бэкенд сменой одного параметра конфигурации).
//
// 📚 СЛОИ (создаются в таком порядке):
// 1. ИНФРАСТРУКТУРА: PostgreSQL, RabbitMQ, JWT
// 2. REPOSITORIES: Реализации интерфейсов для БД
// 3. USE CASES: Бизнес-логика + реестр посетителей
// 4. ADAPTERS: HTTP, WebSocket, AMQP
// 5. SERVER: Запуск всех компонентов
//
// ============================================================================

package bootstrap

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	chattransport "outletradar/internal/chat/adapter/in/transport"
	chatamqp "outletradar/internal/chat/adapter/out/out_amqp"
	chathttp "outletradar/internal/chat/adapter/out/out_http"
	chatllm "outletradar/internal/chat/adapter/out/out_llm"
	chatws "outletradar/internal/chat/adapter/out/out_ws"
	chatout "outletradar/internal/chat/application/ports/out"
	loctransport "outletradar/internal/location/adapter/in/transport"
	locamqp "outletradar/internal/location/adapter/out/out_amqp"
	locout "outletradar/internal/location/application/ports/out"
	locdomain "outletradar/internal/location/domain"
	proxtransport "outletradar/internal/proximity/adapter/in/transport"
	proxamqp "outletradar/internal/proximity/adapter/out/out_amqp"
	proxrepo "outletradar/internal/proximity/adapter/out/repo"
	proxin "outletradar/internal/proximity/application/ports/in"
	proxout "outletradar/internal/proximity/application/ports/out"
	proxusecase "outletradar/internal/proximity/application/usecase"
	"outletradar/internal/shared/auth"
	"outletradar/internal/shared/config"
	db_conn "outletradar/internal/shared/db"
	"outletradar/internal/shared/logger"
	"outletradar/internal/shared/mq"
	"outletradar/internal/shared/user"
	"outletradar/internal/shared/ws"
)

// Run запускает Outlet Service со всеми его компонентами.
//
// ЧТО ПРОИСХОДИТ ВНУТРИ:
// 1. Инициализация инфраструктуры (БД, RabbitMQ)
// 2. Создание всех Use Cases и реестра посетителей
// 3. Первичный пересчёт индекса пересечений
// 4. Запуск WebSocket hub (в фоне)
// 5. Запуск HTTP сервера (блокирующий)
func Run(ctx context.Context, cfg config.Config, log *logger.Logger) {
	log.Info(logger.Entry{Action: "outlet_service_starting", Message: "initializing outlet service"})

	// ========================================================================
	// СЛОЙ 1: ИНФРАСТРУКТУРА
	// ========================================================================

	dbPool, err := db_conn.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal(logger.Entry{
			Action:  "db_connection_failed",
			Message: err.Error(),
			Error:   &logger.ErrObj{Msg: err.Error()},
		})
	}
	defer db_conn.Close(dbPool, log)

	// Применяем миграции (создаем таблицы, индексы)
	if err := db_conn.Migrate(ctx, dbPool, log); err != nil {
		log.Fatal(logger.Entry{
			Action:  "db_migration_failed",
			Message: err.Error(),
			Error:   &logger.ErrObj{Msg: err.Error()},
		})
	}

	mqConn, err := mq.NewRabbitMQ(ctx, cfg.RabbitMQ, log)
	if err != nil {
		log.Fatal(logger.Entry{
			Action:  "rabbitmq_connection_failed",
			Message: err.Error(),
			Error:   &logger.ErrObj{Msg: err.Error()},
		})
	}
	defer mqConn.Close()

	if err := mq.SetupTopology(ctx, mqConn, log); err != nil {
		log.Fatal(logger.Entry{
			Action:  "rabbitmq_topology_setup_failed",
			Message: err.Error(),
			Error:   &logger.ErrObj{Msg: err.Error()},
		})
	}

	jwtService := auth.NewJWTService(cfg.JWT)

	// ========================================================================
	// СЛОЙ 2: WEBSOCKET HUB
	// ========================================================================
	// Через WebSocket в браузер уходят снимки чата, а обратно приходят
	// ответы браузерного сенсора позиции и сигналы смены разрешения.

	wsHub := ws.NewHub(jwtService.ExtractUserID, log)
	go wsHub.Run(ctx)

	// ========================================================================
	// СЛОЙ 3: REPOSITORIES
	// ========================================================================

	outletRepo := proxrepo.NewOutletPgRepository(dbPool, log)
	userRepo := user.NewPgRepository(dbPool, log)

	// ========================================================================
	// СЛОЙ 4: PROXIMITY (индекс пересечений)
	// ========================================================================

	indexHolder := proxusecase.NewIndexHolder()

	// События пересчёта уходят и в RabbitMQ, и broadcast'ом в WebSocket:
	// подключённые посетители узнают о новой версии индекса без поллинга
	indexPublisher := &broadcastingIndexPublisher{
		amqp: proxamqp.NewIndexEventPublisher(mqConn, log),
		hub:  wsHub,
	}

	refreshIndexUC := proxusecase.NewRefreshIndexService(
		outletRepo,
		indexHolder,
		indexPublisher,
		cfg.Geo.IntersectionRadiusKm,
		log,
	)
	listOutletsUC := proxusecase.NewListOutletsService(outletRepo, log)

	// Первичный пересчёт: без него highlighter отдаёт пустые списки
	if _, err := refreshIndexUC.Execute(ctx, proxin.RefreshIndexInput{}); err != nil {
		log.Error(logger.Entry{
			Action:  "initial_index_refresh_failed",
			Message: err.Error(),
			Error:   &logger.ErrObj{Msg: err.Error()},
		})
	}

	// ========================================================================
	// СЛОЙ 5: CHAT BACKEND (по конфигурации)
	// ========================================================================

	chatBackend := buildChatBackend(ctx, cfg.Chat, log)
	chatNotifier := chatws.NewWSNotifier(wsHub, log)
	chatPublisher := chatamqp.NewChatEventPublisher(mqConn, log)

	// ========================================================================
	// СЛОЙ 6: РЕЕСТР ПОСЕТИТЕЛЕЙ
	// ========================================================================
	// Acquirer, Coordinator и Highlighter несут состояние посетителя,
	// поэтому создаются лениво по userID и живут в реестре.

	sensors := newSensorRegistry(wsHub, log)

	registry := NewVisitorRegistry(
		sensors.For,
		chatBackend,
		chatNotifier,
		chatPublisher,
		indexHolder,
		time.Duration(cfg.Chat.CreateTimeoutSec)*time.Second,
		time.Duration(cfg.Chat.SendTimeoutSec)*time.Second,
		time.Duration(cfg.Location.FirstFixTimeoutMs)*time.Millisecond,
		time.Duration(cfg.Location.MaxTimeoutMs)*time.Millisecond,
		log,
	)

	// Изменения состояния локации: push в браузер + событие в брокер.
	// Публикуется только фактически новая позиция (смена permission или
	// inFlight событие не порождает).
	locPublisher := locamqp.NewLocationEventPublisher(mqConn, log)
	var lastPublished sync.Map
	registry.OnState = func(userID string, state locdomain.State) {
		_ = wsHub.SendTypedMessage(userID, "location_state", state)

		if state.Location == nil {
			return
		}
		loc := *state.Location
		if prev, ok := lastPublished.Load(userID); ok && prev.(locdomain.UserLocation).Equal(loc) {
			return
		}
		lastPublished.Store(userID, loc)
		go func() {
			pubCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = locPublisher.PublishAcquired(pubCtx, locout.AcquiredEventData{
				UserID:   userID,
				Location: loc,
			})
		}()
	}

	// Входящие WS сообщения: ответы сенсора и сигналы разрешения
	wsHub.SetMessageHandler(func(client *ws.Client, messageType string, data json.RawMessage) error {
		switch messageType {
		case "position_response":
			sensors.Route(client.UserID, data)
		case "permission_changed":
			var msg struct {
				Permission string `json:"permission"`
			}
			if err := json.Unmarshal(data, &msg); err != nil {
				return fmt.Errorf("parse permission_changed: %w", err)
			}
			registry.Acquirer(client.UserID).NotifyPermission(locdomain.Permission(msg.Permission))
		default:
			log.Debug(logger.Entry{
				Action:  "ws_message_ignored",
				Message: messageType,
			})
		}
		return nil
	})

	// ========================================================================
	// СЛОЙ 7: HTTP HANDLERS
	// ========================================================================

	proxHandler := proxtransport.NewHTTPHandler(listOutletsUC, refreshIndexUC, registry.Highlighter, log)
	locHandler := loctransport.NewHTTPHandler(registry.Acquirer, log)
	chatHandler := chattransport.NewHTTPHandler(registry.Coordinator, log)
	loginHandler := NewLoginHandler(userRepo, jwtService, log)

	mux := http.NewServeMux()
	proxHandler.RegisterRoutes(mux, proxtransport.JWTMiddleware(jwtService, log))
	locHandler.RegisterRoutes(mux, loctransport.JWTMiddleware(jwtService, log))
	chatHandler.RegisterRoutes(mux, chattransport.JWTMiddleware(jwtService, log))
	mux.HandleFunc("POST /auth/login", loginHandler.HandleLogin)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	mux.HandleFunc("/ws", wsHub.ServeWS)

	// ========================================================================
	// СЛОЙ 8: HTTP СЕРВЕР
	// ========================================================================

	addr := fmt.Sprintf(":%d", cfg.Services.OutletServicePort)
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info(logger.Entry{
			Action:  "http_server_starting",
			Message: fmt.Sprintf("listening on %s", addr),
		})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(logger.Entry{
				Action:  "http_server_failed",
				Message: err.Error(),
				Error:   &logger.ErrObj{Msg: err.Error()},
			})
		}
	}()

	<-ctx.Done()
	log.Info(logger.Entry{Action: "outlet_service_stopping", Message: "shutting down outlet service"})

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error(logger.Entry{
			Action:  "http_server_shutdown_failed",
			Message: err.Error(),
			Error:   &logger.ErrObj{Msg: err.Error()},
		})
	} else {
		log.Info(logger.Entry{Action: "http_server_stopped", Message: "http server stopped gracefully"})
	}

	log.Info(logger.Entry{Action: "outlet_service_stopped", Message: "outlet service stopped"})
}

// broadcastingIndexPublisher дублирует событие пересчёта индекса из
// RabbitMQ в WebSocket broadcast
type broadcastingIndexPublisher struct {
	amqp *proxamqp.IndexEventPublisher
	hub  *ws.Hub
}

func (p *broadcastingIndexPublisher) PublishIndexRecomputed(ctx context.Context, data proxout.IndexEventData) error {
	payload, err := json.Marshal(map[string]any{
		"type": "index_recomputed",
		"data": data,
	})
	if err == nil {
		p.hub.Broadcast(payload)
	}
	return p.amqp.PublishIndexRecomputed(ctx, data)
}

// buildChatBackend выбирает реализацию чат-бэкенда по конфигурации
func buildChatBackend(ctx context.Context, cfg config.ChatConfig, log *logger.Logger) chatout.ChatBackend {
	switch cfg.Provider {
	case "gemini":
		backend, err := chatllm.NewGeminiBackend(ctx, cfg.APIKey, cfg.Model, log)
		if err != nil {
			log.Fatal(logger.Entry{
				Action:  "chat_backend_init_failed",
				Message: err.Error(),
				Error:   &logger.ErrObj{Msg: err.Error()},
			})
		}
		return backend
	default:
		return chathttp.NewRemoteBackend(cfg.BaseURL, cfg.APIKey, log)
	}
}
