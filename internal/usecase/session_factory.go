package usecase

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"storefront/internal/domain/model"
	"storefront/internal/notify"
	"storefront/internal/platform/logger"
	repo "storefront/internal/repository"
)

// 通知の送り先（ローカルのRegistryかredis Relay）
type Notifier interface {
	NotifyOne(ctx context.Context, username string, message string)
	NotifyAll(ctx context.Context, message string)
}

// ログイン時のチャネル登録先
type ChannelRegistry interface {
	Register(username string, ch notify.Channel)
	Unregister(username string)
}

// セッションからログアウトを頼むための参照（所有はしない）
type SessionCloser interface {
	Logout(username string)
}

type SessionFactoryDeps struct {
	Tx    repo.TransactionManager
	Repos repo.TxRepos // トランザクション外の読み取り用

	Registry ChannelRegistry
	Notifier Notifier // nilならRegistryを使う

	Credentials CredentialScheme

	AdminUsername     string
	AdminCredential   string
	LowStockThreshold int64

	Logger *logger.Logger
	Now    func() time.Time
}

// SessionFactoryはログインを受けてCustomerSession/AdminContextを作る
type SessionFactory struct {
	tx       repo.TransactionManager
	repos    repo.TxRepos
	registry ChannelRegistry
	notifier Notifier
	creds    CredentialScheme

	adminUsername   string
	adminCredential string
	lowStock        int64

	log *logger.Logger
	now func() time.Time
}

func NewSessionFactory(d SessionFactoryDeps) *SessionFactory {
	f := &SessionFactory{
		tx:              d.Tx,
		repos:           d.Repos,
		registry:        d.Registry,
		notifier:        d.Notifier,
		creds:           d.Credentials,
		adminUsername:   d.AdminUsername,
		adminCredential: d.AdminCredential,
		lowStock:        d.LowStockThreshold,
		log:             d.Logger,
		now:             d.Now,
	}
	if f.notifier == nil {
		if n, ok := d.Registry.(Notifier); ok {
			f.notifier = n
		}
	}
	if f.creds == nil {
		f.creds = PlainCredentials{}
	}
	if f.log == nil {
		f.log = logger.NewNop()
	}
	f.log = f.log.With("component", "SessionFactory")
	if f.now == nil {
		f.now = time.Now
	}
	if f.lowStock <= 0 {
		f.lowStock = 5
	}
	if _, plain := f.creds.(PlainCredentials); plain {
		f.log.Warn("customer credentials are stored and compared in plain text; set CREDENTIAL_MODE=bcrypt outside demos")
	}
	return f
}

type RegisterCustomerInput struct {
	Username   string
	Credential string
	Name       string
	Address    string
}

// 登録だけ（ログインはしない）
func (f *SessionFactory) RegisterCustomer(ctx context.Context, in RegisterCustomerInput) error {
	username := strings.TrimSpace(in.Username)
	if username == "" {
		return invalidArgument("username is required")
	}
	if in.Credential == "" {
		return invalidArgument("credential is required")
	}

	stored, err := f.creds.Hash(in.Credential)
	if err != nil {
		return storeUnavailable("hash credential", err)
	}

	err = f.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		//重複チェックは同じトランザクションで
		exists, err := r.Customers().ExistsByUsername(ctx, username)
		if err != nil {
			return storeUnavailable("check username", err)
		}
		if exists {
			return &Error{Kind: ErrConflict, Entity: "customer", Message: username}
		}

		_, err = r.Customers().Create(ctx, model.Customer{
			Username:   username,
			Credential: stored,
			Name:       strings.TrimSpace(in.Name),
			Address:    strings.TrimSpace(in.Address),
		})
		// すり抜けた同時登録は一意制約で弾かれる
		if errors.Is(err, repo.ErrDuplicate) {
			return &Error{Kind: ErrConflict, Entity: "customer", Message: username}
		}
		if err != nil {
			return storeUnavailable("create customer", err)
		}
		return nil
	})
	if err != nil {
		return classify("register customer", err)
	}

	f.log.Info("customer registered", "username", username)
	return nil
}

// 認証に成功したらchを登録してセッションを返す。失敗時はRegistryに触らない
func (f *SessionFactory) Login(ctx context.Context, username string, credential string, ch notify.Channel) (*CustomerSession, error) {
	username = strings.TrimSpace(username)
	c, err := f.repos.Customers().FindByUsername(ctx, username)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrAuthFailure
	}
	if err != nil {
		return nil, storeUnavailable("find customer", err)
	}
	if !f.creds.Verify(c.Credential, credential) {
		return nil, ErrAuthFailure
	}

	if ch != nil {
		f.registry.Register(c.Username, ch)
	}
	f.log.Info("customer logged in", "username", c.Username, "notifications", ch != nil)
	return newCustomerSession(f, f, c), nil
}

// 管理者は設定の固定ペアだけ
func (f *SessionFactory) AdminLogin(ctx context.Context, username string, credential string) (*AdminContext, error) {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(f.adminUsername)) == 1
	credOK := subtle.ConstantTimeCompare([]byte(credential), []byte(f.adminCredential)) == 1
	if !userOK || !credOK {
		return nil, ErrAuthFailure
	}
	f.log.Info("admin logged in", "username", username)
	return newAdminContext(f, username), nil
}

func (f *SessionFactory) Logout(username string) {
	f.registry.Unregister(username)
	f.log.Debug("logged out", "username", username)
}

func (f *SessionFactory) notifyOne(ctx context.Context, username string, message string) {
	if f.notifier == nil {
		return
	}
	// コミット済みの操作の後なので、リクエストが切れても配る
	f.notifier.NotifyOne(context.WithoutCancel(ctx), username, message)
}

func (f *SessionFactory) notifyAll(ctx context.Context, message string) {
	if f.notifier == nil {
		return
	}
	f.notifier.NotifyAll(context.WithoutCancel(ctx), message)
}
