package constants

// 预约状态常量
const (
	ReservationStatePendingPlatform          = "pending_platform"
	ReservationStatePlatformApproved         = "platform_approved"
	ReservationStateInvestorSigned           = "investor_signed"
	ReservationStateWaitingDeveloperDecision = "waiting_developer_decision"
	ReservationStateDeveloperConfirmed       = "developer_confirmed"
	ReservationStateActive                   = "active"
	ReservationStateRejected                 = "rejected"
	ReservationStateExpired                  = "expired"
)

// 佣金状态常量
const (
	CommissionStatusPending    = "pending"
	CommissionStatusEntitled   = "entitled"
	CommissionStatusPayable    = "payable"
	CommissionStatusPaid       = "paid"
	CommissionStatusWrittenOff = "written_off"
)

// 佣金权益阶段常量
const (
	EntitlementPhaseNegotiation      = "negotiation"
	EntitlementPhasePlatformEntitled = "platform_entitled"
	EntitlementPhasePlatformPaid     = "platform_paid"
	EntitlementPhaseBrokerPayable    = "broker_payable"
	EntitlementPhaseSettled          = "settled"
)

// 佣金可回收状态常量
const (
	CollectabilityNotCollectable = "not_collectable"
	CollectabilityCollectable    = "collectable"
	CollectabilityInCollection   = "in_collection"
	CollectabilityWrittenOff     = "written_off"
)

// 佣金分成状态常量
const (
	SplitStatusPending    = "pending"
	SplitStatusCalculated = "calculated"
	SplitStatusLocked     = "locked"
)

// 分成规则范围常量
const (
	SplitRuleScopeGlobalDefault   = "global_default"
	SplitRuleScopeProjectOverride = "project_override"
)

// 等待方常量
const (
	WaitingOnPlatform  = "platform"
	WaitingOnBroker    = "broker"
	WaitingOnDeveloper = "developer"
	WaitingOnInvestor  = "investor"
	WaitingOnNone      = "none"
)

// 终止原因常量
const (
	TerminationReasonReservationExpired = "reservation_expired"
	TerminationReasonReservationReject  = "reservation_rejected"
	TerminationReasonNegotiationExpired = "negotiation_expired"
	TerminationReasonWrittenOff         = "written_off"
)

// 项目状态常量
const (
	ProjectStatusDraft     = "draft"
	ProjectStatusPublished = "published"
	ProjectStatusArchived  = "archived"
)

// 投资票据状态常量
const (
	TicketStatusAvailable = "available"
	TicketStatusReserved  = "reserved"
	TicketStatusCompleted = "completed"
	TicketStatusClosed    = "closed"
)

// 投资形式常量
const (
	InvestmentFormBond        = "bond"
	InvestmentFormLoan        = "loan"
	InvestmentFormEquity      = "equity"
	InvestmentFormConvertible = "convertible"
)

// 担保类型常量
const (
	SecurityTypeMortgage       = "mortgage"
	SecurityTypeGuarantee      = "guarantee"
	SecurityTypeBillOfExchange = "bill_of_exchange"
	SecurityTypeNone           = "none"
)

// 投资人状态常量
const (
	InvestorStateActive   = "active"
	InvestorStateArchived = "archived"
)

// 经纪人状态常量
const (
	BrokerStatusActive    = "active"
	BrokerStatusSuspended = "suspended"
)

// 匹配质量分级常量
const (
	MatchQualityHigh   = "high"
	MatchQualityMedium = "medium"
	MatchQualityLow    = "low"
)

// 匹配属性名称常量
const (
	MatchAttributeInvestmentForm = "investment_form"
	MatchAttributeYield          = "yield"
	MatchAttributeSecurity       = "security"
)

// 匹配失效原因常量
const (
	MatchRemovalReasonTicketClosed    = "ticket_closed"
	MatchRemovalReasonBelowThreshold  = "below_threshold"
	MatchRemovalReasonInvestorDeleted = "investor_deleted"
	MatchRemovalReasonTicketDeleted   = "ticket_deleted"
	MatchRemovalReasonStateChanged    = "state_changed"
)

// 审计事件动作常量
const (
	AuditActionReservationCreated   = "reservation_created"
	AuditActionReservationApproved  = "reservation_approved"
	AuditActionReservationRejected  = "reservation_rejected"
	AuditActionInvestorSigned       = "investor_signed"
	AuditActionSentToDeveloper      = "reservation_sent_to_developer"
	AuditActionDeveloperConfirmed   = "developer_confirmed"
	AuditActionReservationActivated = "reservation_activated"
	AuditActionReservationExpired   = "reservation_expired"
	AuditActionProjectOriginAssign  = "project_origin_assigned"
	AuditActionProjectPublished     = "project_published"

	AuditActionCommissionCreated             = "commission_created"
	AuditActionCommissionSplitCalculated     = "commission_split_calculated"
	AuditActionCommissionSplitLocked         = "commission_split_locked"
	AuditActionCommissionInvestmentConfirmed = "commission_investment_confirmed"
	AuditActionCommissionPlatformPaid        = "commission_platform_paid"
	AuditActionCommissionBrokerPayable       = "commission_broker_payable"
	AuditActionCommissionPaid                = "commission_paid"
	AuditActionCommissionWrittenOff          = "commission_written_off"
	AuditActionCommissionNegotiationExpired  = "commission_negotiation_expired"
	AuditActionCommissionPaymentOverdue      = "commission_payment_overdue"

	AuditActionInvestorUpdated             = "investor_updated"
	AuditActionTicketUpdated               = "ticket_updated"
	AuditActionMatchResulted               = "investor_match_resulted"
	AuditActionMatchResultsUpdated         = "investor_match_results_updated"
	AuditActionMatchRemoved                = "investor_match_removed"
	AuditActionMatchInactiveRemoved        = "investor_match_inactive_removed"
	AuditActionMatchScoreUpdated           = "investor_match_score_updated"
	AuditActionMatchValidationStarted      = "investor_match_validation_started"
	AuditActionMatchValidationCompleted    = "investor_match_validation_completed"
	AuditActionMatchSLAViolation           = "investor_match_sla_violation"
)

// 审计事件严重级别常量
const (
	AuditSeverityInfo     = "info"
	AuditSeverityWarning  = "warning"
	AuditSeverityHigh     = "high"
	AuditSeverityCritical = "critical"
)

// 审计实体类型常量
const (
	EntityTypeReservation = "reservation"
	EntityTypeCommission  = "commission"
	EntityTypeProject     = "project"
	EntityTypeTicket      = "ticket"
	EntityTypeInvestor    = "investor"
	EntityTypeMatch       = "investor_matching_result"
)

// 系统操作者常量
const (
	ActorSystem = "SYSTEM"
)

// 事故状态常量
const (
	IncidentStatusOpen     = "open"
	IncidentStatusResolved = "resolved"
)

// 事故来源常量
const (
	IncidentSourceAuditSink  = "audit_sink"
	IncidentSourceSLAMonitor = "sla_monitor"
)

// 队列常量
const (
	QueueDefault                  = "default"
	TaskMatchRecalculateInvestor  = "matching:recalculate_investor"
	TaskMatchUpdateTicket         = "matching:update_ticket"
	TaskCommissionDeadlineSweep   = "commission:deadline_sweep"
	TaskReservationExpirySweep    = "reservation:expiry_sweep"
)

// 缓存默认配置常量
const (
	RedisPrefixDefault = "tp"
)

// 币种常量
const (
	SiteCurrencyDefault = "CZK"
)

// 内置兜底分成比例（平台/来源经纪人/预约经纪人）
const (
	FallbackPlatformFeePercent       = 10
	FallbackOriginBrokerPercent      = 40
	FallbackReservationBrokerPercent = 50
)
