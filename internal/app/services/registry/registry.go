// Package registry builds every store and service over one database so
// that the HTTP layer, the job scheduler and the tests share one wiring.
package registry

import (
	"time"

	dashboardsvc "github.com/dalemusser/ridehub/internal/app/services/dashboard"
	documentsvc "github.com/dalemusser/ridehub/internal/app/services/documents"
	locationsvc "github.com/dalemusser/ridehub/internal/app/services/driverlocations"
	contactsvc "github.com/dalemusser/ridehub/internal/app/services/emergencycontacts"
	evpsvc "github.com/dalemusser/ridehub/internal/app/services/evps"
	notificationsvc "github.com/dalemusser/ridehub/internal/app/services/notifications"
	ratingsvc "github.com/dalemusser/ridehub/internal/app/services/ratings"
	ridesvc "github.com/dalemusser/ridehub/internal/app/services/rides"
	rolesvc "github.com/dalemusser/ridehub/internal/app/services/roles"
	settingssvc "github.com/dalemusser/ridehub/internal/app/services/settings"
	subscriptionsvc "github.com/dalemusser/ridehub/internal/app/services/subscriptions"
	usersvc "github.com/dalemusser/ridehub/internal/app/services/users"
	walletsvc "github.com/dalemusser/ridehub/internal/app/services/wallet"
	withdrawalsvc "github.com/dalemusser/ridehub/internal/app/services/withdrawals"
	"github.com/dalemusser/ridehub/internal/app/store/audit"
	bankaccountstore "github.com/dalemusser/ridehub/internal/app/store/bankaccounts"
	driverlocationstore "github.com/dalemusser/ridehub/internal/app/store/driverlocations"
	contactstore "github.com/dalemusser/ridehub/internal/app/store/emergencycontacts"
	evpstore "github.com/dalemusser/ridehub/internal/app/store/evps"
	joblockstore "github.com/dalemusser/ridehub/internal/app/store/joblocks"
	notificationstore "github.com/dalemusser/ridehub/internal/app/store/notifications"
	ratingstore "github.com/dalemusser/ridehub/internal/app/store/ratings"
	ridestore "github.com/dalemusser/ridehub/internal/app/store/rides"
	rolestore "github.com/dalemusser/ridehub/internal/app/store/roles"
	settingsstore "github.com/dalemusser/ridehub/internal/app/store/settings"
	subscriptionstore "github.com/dalemusser/ridehub/internal/app/store/subscriptions"
	userstore "github.com/dalemusser/ridehub/internal/app/store/users"
	walletstore "github.com/dalemusser/ridehub/internal/app/store/wallets"
	withdrawalstore "github.com/dalemusser/ridehub/internal/app/store/withdrawals"
	"github.com/dalemusser/ridehub/internal/app/system/auth"
	"github.com/dalemusser/ridehub/internal/app/system/events"
	"github.com/dalemusser/ridehub/internal/app/system/metrics"
	"github.com/dalemusser/ridehub/internal/app/system/push"
	"github.com/dalemusser/waffle/pantry/storage"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Options carries the collaborators that are not stores.
type Options struct {
	ResetSecret   string        // signs password reset tokens
	ResetTokenTTL time.Duration // defaults to one hour
	BaseURL       string        // public address used in reset links
	Blobs         storage.Store // required for document uploads
	Push          push.Sender   // nil sends nothing
	Bus           *events.Bus   // nil drops domain events
	Metrics       *metrics.Metrics
	Logger        *zap.Logger
}

// Stores are the collection handles the HTTP layer reads directly.
type Stores struct {
	Users    *userstore.Store
	Roles    *rolestore.Store
	Audit    *audit.Store
	JobLocks *joblockstore.Store
	Rides    *ridestore.Store
	Subs     *subscriptionstore.Store
}

// Set is the assembled service layer.
type Set struct {
	Stores Stores

	Settings      *settingssvc.Service
	Users         *usersvc.Service
	Roles         *rolesvc.Service
	Wallet        *walletsvc.Service
	Notifications *notificationsvc.Service
	Locations     *locationsvc.Service
	Subscriptions *subscriptionsvc.Service
	Rides         *ridesvc.Service
	Ratings       *ratingsvc.Service
	Documents     *documentsvc.Service
	Withdrawals   *withdrawalsvc.Service
	Evps          *evpsvc.Service
	Contacts      *contactsvc.Service
	Dashboard     *dashboardsvc.Service
}

// New wires all services over db.
func New(db *mongo.Database, o Options) *Set {
	log := o.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if o.ResetTokenTTL <= 0 {
		o.ResetTokenTTL = time.Hour
	}
	sender := o.Push
	if sender == nil {
		sender = push.Nop{Log: log}
	}

	st := Stores{
		Users:    userstore.New(db),
		Roles:    rolestore.New(db),
		Audit:    audit.New(db),
		JobLocks: joblockstore.New(db),
		Rides:    ridestore.New(db),
		Subs:     subscriptionstore.New(db),
	}

	s := &Set{Stores: st}
	s.Settings = settingssvc.New(settingsstore.New(db), log.Named("settings"))
	s.Users = usersvc.New(st.Users, st.Roles, st.Audit,
		auth.NewResetTokens(o.ResetSecret, o.ResetTokenTTL), o.Bus, o.BaseURL, log.Named("users"))
	s.Roles = rolesvc.New(st.Roles, st.Users)
	s.Wallet = walletsvc.New(db, walletstore.New(db), s.Settings, o.Metrics, log.Named("wallet"))
	s.Notifications = notificationsvc.New(notificationstore.New(db), st.Users, sender, o.Metrics, log.Named("notifications"))
	s.Locations = locationsvc.New(driverlocationstore.New(db), s.Settings, log.Named("locations"))
	s.Subscriptions = subscriptionsvc.New(st.Subs, s.Wallet, s.Settings, o.Bus, o.Metrics, log.Named("subscriptions"))
	s.Rides = ridesvc.New(st.Rides, st.Users, s.Locations, s.Subscriptions, s.Wallet, s.Settings, o.Bus, o.Metrics, log.Named("rides"))
	s.Ratings = ratingsvc.New(st.Rides, ratingstore.New(db), st.Users, s.Notifications, o.Metrics, log.Named("ratings"))
	s.Documents = documentsvc.New(db, st.Users, o.Blobs, o.Bus, log.Named("documents"))
	s.Withdrawals = withdrawalsvc.New(withdrawalstore.New(db), bankaccountstore.New(db), s.Wallet, s.Settings, o.Bus, log.Named("withdrawals"))
	s.Evps = evpsvc.New(evpstore.New(db), st.Users, s.Wallet, s.Settings, o.Bus, o.Metrics, log.Named("evps"))
	s.Contacts = contactsvc.New(contactstore.New(db), log.Named("contacts"))
	s.Dashboard = dashboardsvc.New(dashboardsvc.Sources{
		Users:         s.Users,
		Rides:         st.Rides,
		Documents:     s.Documents,
		Withdrawals:   s.Withdrawals,
		Subscriptions: st.Subs,
	}, log.Named("dashboard"))
	return s
}
