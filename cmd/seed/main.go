package main

import (
	"fmt"

	"github.com/tipari/platform/internal/config"
	"github.com/tipari/platform/internal/constants"
	"github.com/tipari/platform/internal/logger"
	"github.com/tipari/platform/internal/models"

	"github.com/shopspring/decimal"
)

func main() {
	// 连接数据库
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	// 自动迁移
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	// 添加经纪人
	brokers := []models.Broker{
		{Name: "Jana Novotná", Email: "jana.novotna@tipari.cz", Status: constants.BrokerStatusActive},
		{Name: "Petr Svoboda", Email: "petr.svoboda@tipari.cz", Status: constants.BrokerStatusActive},
		{Name: "Martin Dvořák", Email: "martin.dvorak@tipari.cz", Status: constants.BrokerStatusActive},
	}
	brokerIDs := map[string]uint{}
	for _, broker := range brokers {
		var existing models.Broker
		if err := models.DB.Where("email = ?", broker.Email).First(&existing).Error; err != nil {
			if err := models.DB.Create(&broker).Error; err != nil {
				stdLog.Printf("Failed to create broker %s: %v", broker.Email, err)
				continue
			}
			stdLog.Printf("Created broker: %s", broker.Email)
			brokerIDs[broker.Email] = broker.ID
		} else {
			stdLog.Printf("Broker already exists: %s", broker.Email)
			brokerIDs[broker.Email] = existing.ID
		}
	}

	// 添加项目（直接以已发布状态入库，便于演示预约与匹配）
	projects := []models.Project{
		{
			Name:           "Rezidence Vinohrady",
			Status:         constants.ProjectStatusPublished,
			InvestmentForm: constants.InvestmentFormBond,
			YieldPA:        models.NewMoneyFromDecimal(decimal.NewFromFloat(9.5)),
		},
		{
			Name:           "Logistický park Brno",
			Status:         constants.ProjectStatusPublished,
			InvestmentForm: constants.InvestmentFormLoan,
			YieldPA:        models.NewMoneyFromDecimal(decimal.NewFromFloat(11.0)),
		},
		{
			Name:           "Bytový dům Karlín",
			Status:         constants.ProjectStatusDraft,
			InvestmentForm: constants.InvestmentFormEquity,
			YieldPA:        models.NewMoneyFromDecimal(decimal.NewFromFloat(14.0)),
		},
	}
	projectIDs := map[string]uint{}
	for _, project := range projects {
		var existing models.Project
		if err := models.DB.Where("name = ?", project.Name).First(&existing).Error; err != nil {
			if err := models.DB.Create(&project).Error; err != nil {
				stdLog.Printf("Failed to create project %s: %v", project.Name, err)
				continue
			}
			stdLog.Printf("Created project: %s", project.Name)
			projectIDs[project.Name] = project.ID
		} else {
			stdLog.Printf("Project already exists: %s", project.Name)
			projectIDs[project.Name] = existing.ID
		}
	}

	// 添加票据
	tickets := []struct {
		ProjectName           string
		MinInvestmentAmount   float64
		CommissionRatePercent int
		SecurityTypes         models.StringArray
	}{
		{
			ProjectName:           "Rezidence Vinohrady",
			MinInvestmentAmount:   500000,
			CommissionRatePercent: 4,
			SecurityTypes:         models.StringArray{constants.SecurityTypeMortgage, constants.SecurityTypeGuarantee},
		},
		{
			ProjectName:           "Rezidence Vinohrady",
			MinInvestmentAmount:   1000000,
			CommissionRatePercent: 5,
			SecurityTypes:         models.StringArray{constants.SecurityTypeMortgage},
		},
		{
			ProjectName:           "Logistický park Brno",
			MinInvestmentAmount:   2000000,
			CommissionRatePercent: 6,
			SecurityTypes:         models.StringArray{constants.SecurityTypeBillOfExchange, constants.SecurityTypeNone},
		},
	}
	for _, plan := range tickets {
		projectID := projectIDs[plan.ProjectName]
		if projectID == 0 {
			stdLog.Printf("Skip ticket for %s: project missing", plan.ProjectName)
			continue
		}
		var count int64
		models.DB.Model(&models.Ticket{}).
			Where("project_id = ? AND min_investment_amount = ?", projectID, plan.MinInvestmentAmount).
			Count(&count)
		if count > 0 {
			stdLog.Printf("Ticket already exists: %s / %.0f", plan.ProjectName, plan.MinInvestmentAmount)
			continue
		}
		ticket := models.Ticket{
			ProjectID:             projectID,
			Status:                constants.TicketStatusAvailable,
			MinInvestmentAmount:   models.NewMoneyFromDecimal(decimal.NewFromFloat(plan.MinInvestmentAmount)),
			CommissionRatePercent: plan.CommissionRatePercent,
			SecurityTypes:         plan.SecurityTypes,
		}
		if err := models.DB.Create(&ticket).Error; err != nil {
			stdLog.Printf("Failed to create ticket for %s: %v", plan.ProjectName, err)
		} else {
			stdLog.Printf("Created ticket #%d for %s", ticket.ID, plan.ProjectName)
		}
	}

	// 添加投资人
	investors := []models.Investor{
		{
			Name:            "Invest Group Alfa",
			State:           constants.InvestorStateActive,
			InvestmentForms: models.StringArray{constants.InvestmentFormBond, constants.InvestmentFormLoan},
			YieldMin:        models.NewMoneyFromDecimal(decimal.NewFromFloat(8)),
			YieldMax:        models.NewMoneyFromDecimal(decimal.NewFromFloat(12)),
			SecurityTypes:   models.StringArray{constants.SecurityTypeMortgage},
		},
		{
			Name:            "Kapitál Morava",
			State:           constants.InvestorStateActive,
			InvestmentForms: models.StringArray{constants.InvestmentFormLoan},
			YieldMin:        models.NewMoneyFromDecimal(decimal.NewFromFloat(10)),
			YieldMax:        models.NewMoneyFromDecimal(decimal.NewFromFloat(15)),
			SecurityTypes:   models.StringArray{constants.SecurityTypeBillOfExchange, constants.SecurityTypeGuarantee},
		},
		{
			Name:            "Rodinný fond Praha",
			State:           constants.InvestorStateActive,
			InvestmentForms: models.StringArray{constants.InvestmentFormBond, constants.InvestmentFormEquity},
			YieldMin:        models.NewMoneyFromDecimal(decimal.NewFromFloat(6)),
			YieldMax:        models.NewMoneyFromDecimal(decimal.NewFromFloat(10)),
			SecurityTypes:   models.StringArray{constants.SecurityTypeMortgage, constants.SecurityTypeGuarantee},
		},
	}
	for _, investor := range investors {
		var existing models.Investor
		if err := models.DB.Where("name = ?", investor.Name).First(&existing).Error; err != nil {
			if err := models.DB.Create(&investor).Error; err != nil {
				stdLog.Printf("Failed to create investor %s: %v", investor.Name, err)
			} else {
				stdLog.Printf("Created investor: %s", investor.Name)
			}
		} else {
			stdLog.Printf("Investor already exists: %s", investor.Name)
		}
	}

	// 添加全局默认分成规则
	var existingRule models.CommissionSplitRule
	if err := models.DB.
		Where("scope = ? AND is_active = ?", constants.SplitRuleScopeGlobalDefault, true).
		First(&existingRule).Error; err != nil {
		rule := models.CommissionSplitRule{
			Name:                     "Global default split",
			Scope:                    constants.SplitRuleScopeGlobalDefault,
			PlatformFeePercent:       constants.FallbackPlatformFeePercent,
			OriginBrokerPercent:      constants.FallbackOriginBrokerPercent,
			ReservationBrokerPercent: constants.FallbackReservationBrokerPercent,
			IsActive:                 true,
			CreatedBy:                constants.ActorSystem,
		}
		if err := models.DB.Create(&rule).Error; err != nil {
			stdLog.Printf("Failed to create global default split rule: %v", err)
		} else {
			stdLog.Println("Created global default split rule")
		}
	} else {
		stdLog.Println("Global default split rule already exists")
	}

	fmt.Println("\n✅ Seed data created successfully!")
	fmt.Println("Summary:")
	fmt.Println("- 3 Brokers")
	fmt.Println("- 3 Projects (2 published + 1 draft)")
	fmt.Println("- 3 Tickets (available)")
	fmt.Println("- 3 Investors (active)")
	fmt.Println("- Global default split rule (10/40/50)")
}
