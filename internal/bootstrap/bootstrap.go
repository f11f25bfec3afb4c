// Package bootstrap wires stores, services and the handler from Config.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/rs/zerolog"

	"chat-conversations/handler"
	"chat-conversations/internal/authz"
	"chat-conversations/internal/config"
	"chat-conversations/internal/i18n"
	"chat-conversations/internal/integrations/paramstore"
	"chat-conversations/internal/repository"
	"chat-conversations/internal/repository/memory"
	"chat-conversations/internal/usecase"
)

// NewHandler builds the request handler. With config.StoreMemory no AWS
// configuration is loaded and permissions come from cfg.LocalGrants.
func NewHandler(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*handler.Handler, error) {
	var (
		perms  authz.PermissionReader
		store  usecase.MessageStore
		params i18n.ParamLister
	)

	switch cfg.Store {
	case config.StoreMemory:
		grants, err := cfg.Grants()
		if err != nil {
			return nil, err
		}
		memPerms := memory.NewPermissionStore()
		for _, g := range grants {
			memPerms.Grant(g[0], g[1], true)
		}
		perms = memPerms
		store = memory.NewMessageStore()
	default:
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: load AWS config: %w", err)
		}
		dynamoClient := awsdynamodb.NewFromConfig(awsCfg, func(o *awsdynamodb.Options) {
			if cfg.DynamoDBEndpoint != "" {
				o.BaseEndpoint = aws.String(cfg.DynamoDBEndpoint)
			}
		})
		permTable, err := repository.NewPermissionTable(dynamoClient, cfg.PermissionsTable)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: permission table: %w", err)
		}
		msgTable, err := repository.NewMessageTable(dynamoClient, cfg.MessagesTable)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: message table: %w", err)
		}
		perms = permTable
		store = msgTable

		if cfg.ParamPrefix != "" {
			ssmClient, err := paramstore.New(awsssm.NewFromConfig(awsCfg))
			if err != nil {
				return nil, fmt.Errorf("bootstrap: SSM client: %w", err)
			}
			params = ssmClient
		}
	}

	checker, err := authz.NewChecker(perms)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	svc, err := usecase.NewMessageService(checker, store, cfg.MaxMessageLength)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	catalog, err := i18n.NewCatalog(cfg.DefaultLanguage, params, cfg.ParamPrefix)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	return handler.NewHandler(svc, catalog, logger)
}
