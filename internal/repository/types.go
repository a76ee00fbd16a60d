package repository

import "time"

// ReservationListFilter 查询预约列表的过滤条件
type ReservationListFilter struct {
	Page        int
	PageSize    int
	TicketID    uint
	BrokerID    uint
	State       string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// CommissionListFilter 查询佣金列表的过滤条件
type CommissionListFilter struct {
	Page             int
	PageSize         int
	BrokerID         uint
	ProjectID        uint
	Status           string
	EntitlementPhase string
	Collectability   string
	CreatedFrom      *time.Time
	CreatedTo        *time.Time
}

// SplitRuleListFilter 查询分成规则列表的过滤条件
type SplitRuleListFilter struct {
	Page       int
	PageSize   int
	Scope      string
	ProjectID  uint
	OnlyActive bool
}

// MatchListFilter 查询匹配结果列表的过滤条件
type MatchListFilter struct {
	Page       int
	PageSize   int
	InvestorID uint
	TicketID   uint
	Quality    string
	OnlyActive bool
}

// TicketListFilter 查询票据列表的过滤条件
type TicketListFilter struct {
	Page      int
	PageSize  int
	ProjectID uint
	Status    string
}

// InvestorListFilter 查询投资人列表的过滤条件
type InvestorListFilter struct {
	Page     int
	PageSize int
	State    string
	Search   string
}

// AuditEventListFilter 查询审计事件列表的过滤条件
type AuditEventListFilter struct {
	Page        int
	PageSize    int
	Action      string
	EntityType  string
	EntityID    string
	Actor       string
	Severity    string
	RunID       string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// IncidentListFilter 查询系统事故列表的过滤条件
type IncidentListFilter struct {
	Page     int
	PageSize int
	Source   string
	Severity string
	Status   string
}
