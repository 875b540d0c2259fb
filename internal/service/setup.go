package service

import (
	"tg-warden/internal/config"
	"tg-warden/internal/gateway"
	"tg-warden/internal/logger"
	"tg-warden/internal/storage"
)

var (
	userRepository     *storage.UserRepository
	sanctionRepository *storage.SanctionRepository
	chatConfigRepos    *storage.ChatConfigRepository

	// Restrictions, Captcha, History and Audit are the engine's
	// public services, wired once at startup
	Restrictions *RestrictionService
	Captcha      *CaptchaService
	History      *HistoryService
	Audit        *AuditBroadcaster

	globalConfig *config.Config
)

// Initialize stores the configuration for the service layer
func Initialize(cfg *config.Config) {
	globalConfig = cfg
}

// InitRepositories initializes the repositories and migrates their
// tables. Must run after storage.Initialize.
func InitRepositories() {
	if storage.DB == nil {
		logger.Errorf("database not initialized, cannot create repositories")
		return
	}

	userRepository = storage.NewUserRepository(storage.DB)
	if err := userRepository.MigrateTable(); err != nil {
		logger.Warningf("Error migrating UserRecord table: %v", err)
	}

	sanctionRepository = storage.NewSanctionRepository(storage.DB)
	if err := sanctionRepository.MigrateTable(); err != nil {
		logger.Warningf("Error migrating SanctionRecord table: %v", err)
	}

	chatConfigRepos = storage.NewChatConfigRepository(storage.DB)
	if err := chatConfigRepos.MigrateTable(); err != nil {
		logger.Warningf("Error migrating ChatConfig table: %v", err)
	}
}

// WireServices builds the engine services on top of the repositories
// and the given gateway
func WireServices(gw gateway.ChatGateway) {
	mod := globalConfig.Moderation

	Audit = NewAuditBroadcaster(gw, chatConfigRepos)
	policy := NewDurationPolicy(mod)

	// One lock registry for both services: captcha expiry and command
	// sanctions mutate the same ledger rows
	locks := NewKeyedLocks()
	Restrictions = NewRestrictionService(gw, userRepository, sanctionRepository, Audit, policy, mod.MaxWarns, locks)
	Captcha = NewCaptchaService(gw, userRepository, sanctionRepository, Audit, mod.CaptchaTimeout, mod.CaptchaBan, locks)
	History = NewHistoryService(sanctionRepository, mod.HistoryPageSize)
}

// ChatConfigs exposes the chat config repository to command handlers
func ChatConfigs() *storage.ChatConfigRepository {
	return chatConfigRepos
}

// Users exposes the user repository to maintenance tasks
func Users() *storage.UserRepository {
	return userRepository
}
