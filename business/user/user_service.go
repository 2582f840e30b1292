package user

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"storefront/domain"
	"storefront/pkg/logger"
	"storefront/pkg/metrics"
	"storefront/pkg/utils"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// UserRepository contract interface
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	FindByID(ctx context.Context, id uint) (domain.User, error)
	FindByEmail(ctx context.Context, email string) (domain.User, error)
	FindByVerificationToken(ctx context.Context, token string) (domain.User, error)
	FindAll(ctx context.Context) ([]domain.User, error)
	Update(ctx context.Context, user *domain.User) error
	SetVerificationToken(ctx context.Context, id uint, token string, expiresAt time.Time) error
	MarkVerified(ctx context.Context, id uint, token string) error
}

// CustomerRepository contract interface
type CustomerRepository interface {
	Create(ctx context.Context, customer *domain.Customer) error
	FindByID(ctx context.Context, id uint) (domain.Customer, error)
	FindByUserID(ctx context.Context, userID uint) (domain.Customer, error)
	Update(ctx context.Context, customer *domain.Customer) error
	SetPushToken(ctx context.Context, id uint, token *string) error
}

// Transactor runs fn as one atomic unit.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// NotificationRepository contract interface
type NotificationRepository interface {
	SendEmail(ctx context.Context, toName, toEmail, subject, htmlBody string) error
}

type ImageRepository interface {
	Upload(ctx context.Context, filename string, data []byte) (string, error)
	Delete(ctx context.Context, url string) error
}

type SessionRepository interface {
	StoreToken(ctx context.Context, token string, data domain.Session, ttl time.Duration) error
	DeleteToken(ctx context.Context, userID, token string) error
	DeleteAllTokens(ctx context.Context, userID string) error
}

type Config struct {
	JWTSecret            string
	JWTTTL               time.Duration
	VerificationTokenTTL time.Duration
	AppDeploymentUrl     string
	NotificationTimeout  time.Duration
}

type userService struct {
	userRepo     UserRepository
	customerRepo CustomerRepository
	tx           Transactor
	notifRepo    NotificationRepository
	imageRepo    ImageRepository
	sessionRepo  SessionRepository
	validate     *validator.Validate
	cfg          Config
}

const (
	SubjectRegisterAccount   = "Activate Your Account!"
	EmailBodyRegisterAccount = `<p>Hi %s,</p><p>Activate your account by opening the link below.</p><p><a href="%s">%s</a></p><p>The link is valid for %s.</p>`
)

func NewUserService(
	userRepo UserRepository,
	customerRepo CustomerRepository,
	tx Transactor,
	notifRepo NotificationRepository,
	imageRepo ImageRepository,
	sessionRepo SessionRepository,
	validate *validator.Validate,
	cfg Config,
) *userService {
	if cfg.VerificationTokenTTL <= 0 {
		cfg.VerificationTokenTTL = 24 * time.Hour
	}
	if cfg.JWTTTL <= 0 {
		cfg.JWTTTL = 72 * time.Hour
	}
	if cfg.NotificationTimeout <= 0 {
		cfg.NotificationTimeout = 5 * time.Second
	}

	return &userService{
		userRepo:     userRepo,
		customerRepo: customerRepo,
		tx:           tx,
		notifRepo:    notifRepo,
		imageRepo:    imageRepo,
		sessionRepo:  sessionRepo,
		validate:     validate,
		cfg:          cfg,
	}
}

type ImageUpload struct {
	Filename string
	Data     []byte
}

type RegisterInput struct {
	Username    string       `json:"username" validate:"required,min=3,max=50"`
	Email       string       `json:"email" validate:"required,email"`
	Password    string       `json:"password" validate:"required,min=6"`
	FirstName   string       `json:"first_name" validate:"required"`
	LastName    string       `json:"last_name" validate:"required"`
	PhoneNumber string       `json:"phone_number" validate:"required"`
	Address     string       `json:"address" validate:"required"`
	ZipCode     string       `json:"zip_code" validate:"required"`
	Image       *ImageUpload `json:"-"`
}

type GoogleLoginInput struct {
	Email       string `json:"email" validate:"required,email"`
	ExternalID  string `json:"external_id" validate:"required"`
	DisplayName string `json:"display_name"`
	PushToken   string `json:"push_token"`
}

type UpdateProfileInput struct {
	Username    string       `json:"username" validate:"omitempty,min=3,max=50"`
	FirstName   string       `json:"first_name"`
	LastName    string       `json:"last_name"`
	PhoneNumber string       `json:"phone_number"`
	Address     string       `json:"address"`
	ZipCode     string       `json:"zip_code"`
	Image       *ImageUpload `json:"-"`
}

// LoginResult is what a successful login hands back to the client.
type LoginResult struct {
	User       *domain.User `json:"user,omitempty"`
	Token      string       `json:"token"`
	CustomerID uint         `json:"customerId"`
}

// Register creates the user, its customer profile and a verification token
// in one atomic unit. An image uploaded during a failed unit is deleted
// again. The verification email goes out after commit and never fails the
// registration.
func (s *userService) Register(ctx context.Context, in RegisterInput) (domain.User, error) {
	if err := s.validate.Struct(in); err != nil {
		logger.Error("Failed to validate user register", err)
		return domain.User{}, domain.FromValidator(err)
	}

	email := normalizeEmail(in.Email)

	// Fast path for a friendly error; the unique index on email is the
	// actual guard against concurrent registrations.
	if _, err := s.userRepo.FindByEmail(ctx, email); err == nil {
		logger.Warn("Email already exists", "email", email)
		return domain.User{}, domain.ErrDuplicateEmail
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		logger.Error("Failed to check email", err)
		return domain.User{}, err
	}

	passwordHash, err := utils.HashPassword(in.Password)
	if err != nil {
		logger.Error("Failed to hash password", err)
		return domain.User{}, errors.New("failed to hash password")
	}

	token := uuid.NewString()
	expiresAt := time.Now().Add(s.cfg.VerificationTokenTTL)

	var (
		newUser  domain.User
		customer domain.Customer
		imageURL string
	)

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		newUser = domain.User{
			Username:   strings.TrimSpace(in.Username),
			Email:      email,
			Password:   string(passwordHash),
			Role:       domain.RoleCustomer,
			IsVerified: false,
		}
		if err := s.userRepo.Create(ctx, &newUser); err != nil {
			return err
		}

		if in.Image != nil {
			url, err := s.imageRepo.Upload(ctx, in.Image.Filename, in.Image.Data)
			if err != nil {
				return fmt.Errorf("failed to upload image: %w", err)
			}
			imageURL = url
		}

		customer = domain.Customer{
			UserID:      newUser.ID,
			FirstName:   strings.TrimSpace(in.FirstName),
			LastName:    strings.TrimSpace(in.LastName),
			PhoneNumber: strings.TrimSpace(in.PhoneNumber),
			Address:     strings.TrimSpace(in.Address),
			ZipCode:     strings.TrimSpace(in.ZipCode),
			Image:       imageURL,
		}
		if err := s.customerRepo.Create(ctx, &customer); err != nil {
			return err
		}

		return s.userRepo.SetVerificationToken(ctx, newUser.ID, token, expiresAt)
	})
	if err != nil {
		logger.Error("Failed to register user", err)
		if imageURL != "" {
			s.discardImage(ctx, imageURL)
		}
		return domain.User{}, err
	}

	metrics.Registrations.WithLabelValues("password").Inc()

	s.sendVerificationEmail(ctx, customer.FullName(), newUser.Email, token)

	newUser.Password = ""
	newUser.Customer = &customer
	return newUser, nil
}

func (s *userService) sendVerificationEmail(ctx context.Context, name, email, token string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.NotificationTimeout)
	defer cancel()

	link := strings.TrimRight(s.cfg.AppDeploymentUrl, "/") + "/api/v1/users/verify/" + token
	body := fmt.Sprintf(EmailBodyRegisterAccount, name, link, link, s.cfg.VerificationTokenTTL)

	if err := s.notifRepo.SendEmail(ctx, name, email, SubjectRegisterAccount, body); err != nil {
		metrics.Notifications.WithLabelValues("email", "failed").Inc()
		logger.Warn("Failed to send verification email", err, "email", email)
		return
	}

	metrics.Notifications.WithLabelValues("email", "sent").Inc()
}

func (s *userService) discardImage(ctx context.Context, url string) {
	if err := s.imageRepo.Delete(context.WithoutCancel(ctx), url); err != nil {
		logger.Warn("Failed to delete orphaned image", err, "url", url)
	}
}

// VerifyEmail consumes a verification token. Unknown, already used and
// expired tokens are all ErrInvalidToken.
func (s *userService) VerifyEmail(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return domain.ErrInvalidToken
	}

	user, err := s.userRepo.FindByVerificationToken(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.ErrInvalidToken
		}
		logger.Error("Verifying email error", err)
		return err
	}

	if user.VerificationExpiresAt != nil && time.Now().After(*user.VerificationExpiresAt) {
		logger.Warn("Verification token expired", "user_id", user.ID)
		return domain.ErrInvalidToken
	}

	if err := s.userRepo.MarkVerified(ctx, user.ID, token); err != nil {
		logger.Error("Verify email err", err)
		return err
	}

	return nil
}

// Login checks credentials, then overwrites the customer's push token and
// registers the session in one unit. Unknown email and wrong password give
// the same error.
func (s *userService) Login(ctx context.Context, email, password, pushToken string) (LoginResult, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		var fields []string
		if strings.TrimSpace(email) == "" {
			fields = append(fields, "email")
		}
		if password == "" {
			fields = append(fields, "password")
		}
		return LoginResult{}, domain.NewMissingFieldsError(fields...)
	}

	user, err := s.userRepo.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return LoginResult{}, domain.ErrInvalidCredentials
		}
		logger.Error("Failed to find user", err)
		return LoginResult{}, err
	}

	if !utils.CheckPassword(password, user.Password) {
		logger.Warn("User password incorrect", "user_id", user.ID)
		return LoginResult{}, domain.ErrInvalidCredentials
	}

	if !user.IsVerified {
		return LoginResult{}, domain.ErrNotVerified
	}

	var result LoginResult
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		customerID, err := s.attachDevice(ctx, user, pushToken)
		if err != nil {
			return err
		}

		token, err := s.issueSession(ctx, user, customerID)
		if err != nil {
			return err
		}

		result = LoginResult{Token: token, CustomerID: customerID}
		return nil
	})
	if err != nil {
		s.revokeSession(ctx, user.ID, result.Token)
		logger.Error("Failed to login", err, "user_id", user.ID)
		return LoginResult{}, err
	}

	user.Password = ""
	result.User = &user
	return result, nil
}

// attachDevice overwrites the push token of the user's customer and returns
// the customer id. Admin accounts may have no customer profile.
func (s *userService) attachDevice(ctx context.Context, user domain.User, pushToken string) (uint, error) {
	customer, err := s.customerRepo.FindByUserID(ctx, user.ID)
	if err != nil {
		if errors.Is(err, domain.ErrCustomerNotFound) {
			if user.Role == domain.RoleAdmin {
				return 0, nil
			}
			return 0, domain.ErrCustomerMissing
		}
		return 0, err
	}

	if err := s.customerRepo.SetPushToken(ctx, customer.ID, optional(pushToken)); err != nil {
		return 0, err
	}

	return customer.ID, nil
}

func (s *userService) issueSession(ctx context.Context, user domain.User, customerID uint) (string, error) {
	userID := strconv.FormatUint(uint64(user.ID), 10)

	token, err := utils.GenerateJWT(s.cfg.JWTSecret, userID, user.Role, s.cfg.JWTTTL)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	now := time.Now()
	session := domain.Session{
		UserID:     userID,
		CustomerID: customerID,
		Role:       user.Role,
		IssuedAt:   now,
		ExpiresAt:  now.Add(s.cfg.JWTTTL),
	}
	if err := s.sessionRepo.StoreToken(ctx, token, session, s.cfg.JWTTTL); err != nil {
		return "", err
	}

	return token, nil
}

// revokeSession drops a session stored by a unit that failed to commit.
func (s *userService) revokeSession(ctx context.Context, userID uint, token string) {
	if token == "" {
		return
	}

	err := s.sessionRepo.DeleteToken(context.WithoutCancel(ctx), strconv.FormatUint(uint64(userID), 10), token)
	if err != nil {
		logger.Warn("Failed to revoke session of failed login", err, "user_id", userID)
	}
}

// GoogleLogin reconciles a federated identity with the local account by
// email. A missing account is created verified with a placeholder profile;
// an existing one is linked and marked verified, and gets a placeholder
// profile if it never had one. Calling it twice yields the same account.
//
// Two first logins for the same email can both miss the lookup. The loser's
// insert hits the unique email index, so its unit is run once more and
// takes the existing-account path.
func (s *userService) GoogleLogin(ctx context.Context, in GoogleLoginInput) (LoginResult, error) {
	if err := s.validate.Struct(in); err != nil {
		return LoginResult{}, domain.FromValidator(err)
	}

	email := normalizeEmail(in.Email)

	var (
		result  LoginResult
		created bool
		err     error
	)
	for attempt := range 2 {
		result, created, err = s.googleLoginUnit(ctx, email, in)
		if err == nil || attempt > 0 || !errors.Is(err, domain.ErrDuplicateEmail) {
			break
		}
		logger.Info("Federated account created concurrently, retrying", "email", email)
	}
	if err != nil {
		logger.Error("Failed to login with google", err, "email", email)
		return LoginResult{}, err
	}

	if created {
		metrics.Registrations.WithLabelValues("google").Inc()
	}

	return result, nil
}

func (s *userService) googleLoginUnit(ctx context.Context, email string, in GoogleLoginInput) (LoginResult, bool, error) {
	var (
		result  LoginResult
		userID  uint
		created bool
	)

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		user, err := s.userRepo.FindByEmail(ctx, email)
		switch {
		case errors.Is(err, domain.ErrUserNotFound):
			externalID := in.ExternalID
			user = domain.User{
				Username:   displayUsername(in.DisplayName, email),
				Email:      email,
				Role:       domain.RoleCustomer,
				IsVerified: true,
				GoogleID:   &externalID,
			}
			if err := s.userRepo.Create(ctx, &user); err != nil {
				return err
			}
			created = true
		case err != nil:
			return err
		default:
			if err := s.linkGoogleAccount(ctx, &user, in.ExternalID); err != nil {
				return err
			}
		}
		userID = user.ID

		if user.Role != domain.RoleAdmin {
			if err := s.ensureCustomer(ctx, user, in.DisplayName); err != nil {
				return err
			}
		}

		customerID, err := s.attachDevice(ctx, user, in.PushToken)
		if err != nil {
			return err
		}

		token, err := s.issueSession(ctx, user, customerID)
		if err != nil {
			return err
		}

		result = LoginResult{Token: token, CustomerID: customerID}
		return nil
	})
	if err != nil {
		s.revokeSession(ctx, userID, result.Token)
		return LoginResult{}, false, err
	}

	return result, created, nil
}

func (s *userService) linkGoogleAccount(ctx context.Context, user *domain.User, externalID string) error {
	changed := false

	if user.GoogleID == nil || *user.GoogleID == "" {
		user.GoogleID = &externalID
		changed = true
	} else if *user.GoogleID != externalID {
		logger.Warn("Google id differs from linked account", "user_id", user.ID)
	}

	if !user.IsVerified {
		user.IsVerified = true
		changed = true
	}

	if !changed {
		return nil
	}

	return s.userRepo.Update(ctx, user)
}

func (s *userService) ensureCustomer(ctx context.Context, user domain.User, displayName string) error {
	_, err := s.customerRepo.FindByUserID(ctx, user.ID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, domain.ErrCustomerNotFound) {
		return err
	}

	customer := placeholderCustomer(user.ID, displayName)
	return s.customerRepo.Create(ctx, &customer)
}

// Logout clears the device push token and ends the session.
func (s *userService) Logout(ctx context.Context, userID uint, token string) error {
	customer, err := s.customerRepo.FindByUserID(ctx, userID)
	switch {
	case err == nil:
		if err := s.customerRepo.SetPushToken(ctx, customer.ID, nil); err != nil {
			logger.Error("Failed to clear push token", err)
			return err
		}
	case !errors.Is(err, domain.ErrCustomerNotFound):
		logger.Error("Failed to find customer", err)
		return err
	}

	if err := s.sessionRepo.DeleteToken(ctx, strconv.FormatUint(uint64(userID), 10), token); err != nil {
		logger.Error("Failed to delete session", err)
		return err
	}

	return nil
}

// UpdateProfile updates the username and profile fields together. Empty
// fields keep their current value.
func (s *userService) UpdateProfile(ctx context.Context, userID uint, in UpdateProfileInput) (domain.User, error) {
	if err := s.validate.Struct(in); err != nil {
		return domain.User{}, domain.FromValidator(err)
	}

	var (
		updated  domain.User
		newImage string
		oldImage string
	)

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		user, err := s.userRepo.FindByID(ctx, userID)
		if err != nil {
			return err
		}

		if in.Username != "" && in.Username != user.Username {
			user.Username = strings.TrimSpace(in.Username)
			if err := s.userRepo.Update(ctx, &user); err != nil {
				return err
			}
		}

		customer, err := s.customerRepo.FindByUserID(ctx, userID)
		if err != nil {
			if errors.Is(err, domain.ErrCustomerNotFound) {
				return domain.ErrCustomerMissing
			}
			return err
		}

		setIfPresent(&customer.FirstName, in.FirstName)
		setIfPresent(&customer.LastName, in.LastName)
		setIfPresent(&customer.PhoneNumber, in.PhoneNumber)
		setIfPresent(&customer.Address, in.Address)
		setIfPresent(&customer.ZipCode, in.ZipCode)

		if in.Image != nil {
			url, err := s.imageRepo.Upload(ctx, in.Image.Filename, in.Image.Data)
			if err != nil {
				return fmt.Errorf("failed to upload image: %w", err)
			}
			newImage = url
			oldImage = customer.Image
			customer.Image = url
		}

		if err := s.customerRepo.Update(ctx, &customer); err != nil {
			return err
		}

		user.Customer = &customer
		updated = user
		return nil
	})
	if err != nil {
		logger.Error("Failed to update profile", err, "user_id", userID)
		if newImage != "" {
			s.discardImage(ctx, newImage)
		}
		return domain.User{}, err
	}

	if oldImage != "" {
		s.discardImage(ctx, oldImage)
	}

	updated.Password = ""
	return updated, nil
}

func (s *userService) FetchCustomerDetails(ctx context.Context, customerID uint) (domain.Customer, error) {
	customer, err := s.customerRepo.FindByID(ctx, customerID)
	if err != nil {
		logger.Error("Failed to get customer", err)
		return domain.Customer{}, err
	}

	if customer.User != nil {
		customer.User.Password = ""
	}
	return customer, nil
}

func (s *userService) GetUserProfile(ctx context.Context, userID uint) (domain.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		logger.Error("Failed to get user by ID", err)
		return domain.User{}, err
	}

	user.Password = ""
	return user, nil
}

// GetAllUsers retrieves all users
func (s *userService) GetAllUsers(ctx context.Context) ([]domain.User, error) {
	users, err := s.userRepo.FindAll(ctx)
	if err != nil {
		logger.Error("Failed to get all users", err)
		return nil, err
	}

	for i := range users {
		users[i].Password = ""
	}

	return users, nil
}

// UpdateRole changes the role and ends the user's open sessions, so the
// next request is authorized under the new role.
func (s *userService) UpdateRole(ctx context.Context, userID uint, role string) (domain.User, error) {
	if role == "" {
		return domain.User{}, domain.NewMissingFieldsError("role")
	}
	if !domain.ValidRole(role) {
		return domain.User{}, domain.NewValidationError("role", "invalid role")
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return domain.User{}, err
	}

	user.Role = role
	if err := s.userRepo.Update(ctx, &user); err != nil {
		logger.Error("Failed to update role", err)
		return domain.User{}, err
	}

	// Sessions carry the role they were issued with.
	if err := s.sessionRepo.DeleteAllTokens(ctx, strconv.FormatUint(uint64(userID), 10)); err != nil {
		logger.Error("Failed to revoke sessions after role change", err, "user_id", userID)
		return domain.User{}, err
	}

	user.Password = ""
	return user, nil
}

// ChangePassword replaces the password and ends every open session. An
// account created through federated login has no password yet and may set
// one without the old password.
func (s *userService) ChangePassword(ctx context.Context, userID uint, oldPassword, newPassword string) error {
	if err := s.validate.Var(newPassword, "required,min=6"); err != nil {
		return domain.NewValidationError("new_password", "password must be at least 6 characters")
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return err
	}

	if user.Password != "" && !utils.CheckPassword(oldPassword, user.Password) {
		return domain.ErrInvalidCredentials
	}

	passwordHash, err := utils.HashPassword(newPassword)
	if err != nil {
		logger.Error("Failed to hash password", err)
		return errors.New("failed to hash password")
	}

	user.Password = string(passwordHash)
	if err := s.userRepo.Update(ctx, &user); err != nil {
		logger.Error("Failed to update password", err)
		return err
	}

	if err := s.sessionRepo.DeleteAllTokens(ctx, strconv.FormatUint(uint64(userID), 10)); err != nil {
		logger.Warn("Failed to revoke sessions after password change", err)
	}

	return nil
}

func placeholderCustomer(userID uint, displayName string) domain.Customer {
	first, last := "Google", "User"
	if parts := strings.Fields(displayName); len(parts) > 0 {
		first = parts[0]
		if len(parts) > 1 {
			last = strings.Join(parts[1:], " ")
		}
	}

	return domain.Customer{
		UserID:      userID,
		FirstName:   first,
		LastName:    last,
		PhoneNumber: "9000000000",
		Address:     "Not provided",
		ZipCode:     "0000",
	}
}

func displayUsername(displayName, email string) string {
	if name := strings.TrimSpace(displayName); name != "" {
		return name
	}
	return strings.SplitN(email, "@", 2)[0]
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func setIfPresent(dst *string, val string) {
	if v := strings.TrimSpace(val); v != "" {
		*dst = v
	}
}
