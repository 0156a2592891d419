package api

import (
	"github.com/sirupsen/logrus"

	"github.com/dexterslab/plural-backend/internal/service"
	"github.com/dexterslab/plural-backend/internal/service/guide"
	"github.com/dexterslab/plural-backend/internal/service/turn"
	"github.com/dexterslab/plural-backend/internal/storage/postgres"
	"github.com/dexterslab/plural-backend/internal/worker"
)

// Server holds API dependencies.
type Server struct {
	authService  *service.AuthService
	questRepo    *postgres.QuestRepository
	msgRepo      *postgres.MessageRepository
	guideService *guide.Service
	turnService  *turn.Service
	pool         *worker.Pool
	logger       *logrus.Logger
}

// NewServer creates a new API server.
func NewServer(
	authService *service.AuthService,
	questRepo *postgres.QuestRepository,
	msgRepo *postgres.MessageRepository,
	guideService *guide.Service,
	turnService *turn.Service,
	pool *worker.Pool,
	logger *logrus.Logger,
) *Server {
	return &Server{
		authService:  authService,
		questRepo:    questRepo,
		msgRepo:      msgRepo,
		guideService: guideService,
		turnService:  turnService,
		pool:         pool,
		logger:       logger,
	}
}
