package cli

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/Astrolithia/qvtu-shopping/internal/auth"
	"github.com/Astrolithia/qvtu-shopping/internal/domain"
	"github.com/Astrolithia/qvtu-shopping/internal/event"
	"github.com/Astrolithia/qvtu-shopping/internal/repository/postgres"
	"github.com/Astrolithia/qvtu-shopping/internal/service"
	apperrors "github.com/Astrolithia/qvtu-shopping/pkg/errors"
)

var (
	seedGroups     = []string{"VIP", "Wholesale", "Staff"}
	seedFirstNames = []string{"Wei", "Fang", "Min", "Jing", "Lei", "Yan", "Hao", "Xiu", "Tao", "Lan"}
	seedLastNames  = []string{"Wang", "Li", "Zhang", "Liu", "Chen", "Yang", "Zhao", "Huang", "Zhou", "Wu"}
	seedCities     = []struct{ city, province, postal string }{
		{"Qingdao", "Shandong", "266000"},
		{"Hangzhou", "Zhejiang", "310000"},
		{"Chengdu", "Sichuan", "610000"},
		{"Shenzhen", "Guangdong", "518000"},
	}
	seedProducts = []struct {
		title string
		sku   string
		price string
	}{
		{"Longjing Tea 250g", "TEA-LJ-250", "128.00"},
		{"Celadon Cup", "CUP-CEL-01", "45.50"},
		{"Bamboo Tray", "TRAY-BMB-01", "89.90"},
		{"Tea Towel", "TWL-01", "12.00"},
	}
)

type seedCustomer struct {
	profile domain.CustomerProfile
	address domain.Address
	group   string
	items   []service.OrderItemInput
}

// seedPlan builds n deterministic customers from rng.
func seedPlan(rng *rand.Rand, n int) []seedCustomer {
	plan := make([]seedCustomer, 0, n)
	for i := range n {
		first := seedFirstNames[rng.IntN(len(seedFirstNames))]
		last := seedLastNames[rng.IntN(len(seedLastNames))]
		loc := seedCities[rng.IntN(len(seedCities))]

		c := seedCustomer{
			profile: domain.CustomerProfile{
				Email:     fmt.Sprintf("seed+%03d@example.com", i+1),
				FirstName: first,
				LastName:  last,
				Metadata:  map[string]any{"seeded": true},
			},
			address: domain.Address{
				FirstName:         first,
				LastName:          last,
				Address1:          fmt.Sprintf("%d Seed Road", rng.IntN(900)+100),
				City:              loc.city,
				Province:          loc.province,
				PostalCode:        loc.postal,
				CountryCode:       "CN",
				IsDefaultShipping: true,
				IsDefaultBilling:  true,
			},
			group: seedGroups[rng.IntN(len(seedGroups))],
		}
		for range rng.IntN(3) + 1 {
			p := seedProducts[rng.IntN(len(seedProducts))]
			c.items = append(c.items, service.OrderItemInput{
				Title:     p.title,
				SKU:       p.sku,
				UnitPrice: decimal.RequireFromString(p.price),
				Quantity:  rng.IntN(4) + 1,
			})
		}
		plan = append(plan, c)
	}
	return plan
}

func newSeedCmd(opts *rootOptions) *cobra.Command {
	var (
		count int
		seed  uint64
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Populate the database with sample customers and orders",
		Long:  `Create customer groups and sample customers, each with a default address, a group and one order. Customers that already exist are skipped, so the command can be re-run.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if count < 1 {
				return fmt.Errorf("--customers must be at least 1")
			}
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			db, closeDB, err := connect(ctx, opts.cfg, opts.logger)
			if err != nil {
				return fmt.Errorf("connect to postgres: %w", err)
			}
			defer closeDB()

			producer := event.NewProducer(event.NewLogPublisher(opts.logger), opts.logger)
			customerRepo := postgres.NewCustomerRepository(db)
			groupRepo := postgres.NewGroupRepository(db)
			addressRepo := postgres.NewAddressRepository(db)
			groups := service.NewGroupService(groupRepo, opts.logger)
			customers := service.NewCustomerService(customerRepo, groupRepo, auth.NewBcryptHasher(opts.cfg.BcryptCost), producer, opts.logger)
			addresses := service.NewAddressService(addressRepo, producer, opts.logger)
			orders := service.NewOrderService(postgres.NewOrderRepository(db), customerRepo, addressRepo, nil, producer, opts.logger)

			groupIDs := make(map[string]string, len(seedGroups))
			for _, name := range seedGroups {
				g, err := groups.Create(ctx, name, map[string]any{"seeded": true})
				if errors.Is(err, apperrors.ErrAlreadyExists) {
					fmt.Fprintf(out, "group %s exists, customers will not be assigned to it\n", name)
					continue
				}
				if err != nil {
					return fmt.Errorf("seed group %s: %w", name, err)
				}
				groupIDs[name] = g.ID
			}

			created := 0
			for _, sc := range seedPlan(rand.New(rand.NewPCG(seed, seed)), count) {
				c, err := customers.Create(ctx, service.CreateCustomerInput{Profile: sc.profile})
				if errors.Is(err, apperrors.ErrAlreadyExists) {
					continue
				}
				if err != nil {
					return fmt.Errorf("seed customer %s: %w", sc.profile.Email, err)
				}
				if _, err := addresses.Add(ctx, c.ID, sc.address); err != nil {
					return fmt.Errorf("seed address for %s: %w", c.Email, err)
				}
				if id, ok := groupIDs[sc.group]; ok {
					if _, err := customers.ReplaceGroups(ctx, c.ID, []string{id}); err != nil {
						return fmt.Errorf("assign group for %s: %w", c.Email, err)
					}
				}
				if _, _, err := orders.Create(ctx, service.CreateOrderInput{CustomerID: c.ID, Items: sc.items}); err != nil {
					return fmt.Errorf("seed order for %s: %w", c.Email, err)
				}
				created++
			}

			fmt.Fprintf(out, "Seeded %d customer(s) with orders.\n", created)
			return nil
		},
	}

	cmd.Flags().IntVar(&count, "customers", 20, "number of customers to create")
	cmd.Flags().Uint64Var(&seed, "seed", 1, "random seed for the generated data")
	return cmd
}
