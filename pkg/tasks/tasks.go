package tasks

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	TypeSyncAccount     = "stats:sync_account"
	TypeSyncAllAccounts = "stats:sync_all"
)

type SyncAccountTaskPayload struct {
	CredentialID int64
}

func NewSyncAccountTask(credentialID int64) (*asynq.Task, error) {
	payload, err := json.Marshal(SyncAccountTaskPayload{CredentialID: credentialID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeSyncAccount, payload), nil
}

func NewSyncAllAccountsTask() (*asynq.Task, error) {
	return asynq.NewTask(TypeSyncAllAccounts, nil), nil
}
