package repoargs

type RepositoryName string

const (
	AccountRepoName     RepositoryName = "account"
	TransactionRepoName RepositoryName = "transaction"
	LedgerRepoName      RepositoryName = "ledger"
	OutboxRepoName      RepositoryName = "outbox"
	AuditRepoName       RepositoryName = "audit"
)
