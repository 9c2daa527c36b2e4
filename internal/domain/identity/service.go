package identity

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrDuplicateUsername  = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrAccountDisabled    = errors.New("account is disabled")
	ErrInvalidInput       = errors.New("invalid input")
)

type Service struct {
	dir Directory
}

func NewService(dir Directory) *Service {
	return &Service{dir: dir}
}

// Register validates and stores a new account of any role. The role-scoped
// profile id is assigned here; callers must not set it.
func (s *Service) Register(u User) (User, error) {
	if err := validateUser(&u); err != nil {
		return User{}, err
	}
	if s.dir.UserExists(u.Username) {
		return User{}, fmt.Errorf("%w: %s", ErrDuplicateUsername, u.Username)
	}

	switch u.Role {
	case RoleAdmin:
		u.Admin.ID = s.dir.NextAdminID()
	case RoleDoctor:
		u.Doctor.ID = s.dir.NextDoctorID()
	case RolePatient:
		u.Patient.ID = s.dir.NextPatientID()
	}
	u.Active = true
	u.CreatedAt = time.Now().UTC()

	if !s.dir.AddUser(u) {
		return User{}, fmt.Errorf("%w: %s", ErrDuplicateUsername, u.Username)
	}
	return u, nil
}

// Authenticate checks the plaintext credential pair and returns the account.
func (s *Service) Authenticate(username, password string) (User, error) {
	if !s.dir.ValidateCredentials(username, password) {
		return User{}, ErrInvalidCredentials
	}
	u, ok := s.dir.User(username)
	if !ok {
		return User{}, ErrInvalidCredentials
	}
	if !u.Active {
		return User{}, ErrAccountDisabled
	}
	return u, nil
}

// SetActive enables or disables an account. Disabled accounts keep their
// profile and history but fail authentication until re-enabled.
func (s *Service) SetActive(username string, active bool) (User, error) {
	u, ok := s.dir.User(username)
	if !ok {
		return User{}, fmt.Errorf("%w: %s", ErrUserNotFound, username)
	}
	u.Active = active
	if !s.dir.UpdateUser(u) {
		return User{}, fmt.Errorf("%w: %s", ErrUserNotFound, username)
	}
	return u, nil
}

func (s *Service) GetUser(username string) (User, error) {
	u, ok := s.dir.User(username)
	if !ok {
		return User{}, fmt.Errorf("%w: %s", ErrUserNotFound, username)
	}
	return u, nil
}

func (s *Service) GetDoctor(doctorID string) (User, error) {
	u, ok := s.dir.Doctor(doctorID)
	if !ok {
		return User{}, fmt.Errorf("%w: doctor %s", ErrUserNotFound, doctorID)
	}
	return u, nil
}

func (s *Service) GetPatient(patientID string) (User, error) {
	u, ok := s.dir.Patient(patientID)
	if !ok {
		return User{}, fmt.Errorf("%w: patient %s", ErrUserNotFound, patientID)
	}
	return u, nil
}

// ListByRole returns accounts of one role in registration order.
func (s *Service) ListByRole(role Role) []User {
	var out []User
	for _, u := range s.dir.AllUsers() {
		if u.Role == role {
			out = append(out, u)
		}
	}
	return out
}

func validateUser(u *User) error {
	u.Username = strings.TrimSpace(u.Username)
	if u.Username == "" {
		return fmt.Errorf("%w: username is required", ErrInvalidInput)
	}
	if u.Password == "" {
		return fmt.Errorf("%w: password is required", ErrInvalidInput)
	}
	if strings.TrimSpace(u.FullName) == "" {
		return fmt.Errorf("%w: full name is required", ErrInvalidInput)
	}
	if u.Email != "" && !strings.Contains(u.Email, "@") {
		return fmt.Errorf("%w: malformed email %q", ErrInvalidInput, u.Email)
	}
	if !u.Role.Valid() {
		return fmt.Errorf("%w: unknown role %q", ErrInvalidInput, u.Role)
	}

	switch u.Role {
	case RoleAdmin:
		if u.Admin == nil {
			u.Admin = &AdminProfile{}
		}
		u.Doctor, u.Patient = nil, nil
	case RoleDoctor:
		if u.Doctor == nil {
			return fmt.Errorf("%w: doctor profile is required", ErrInvalidInput)
		}
		if strings.TrimSpace(u.Doctor.Specialization) == "" {
			return fmt.Errorf("%w: specialization is required", ErrInvalidInput)
		}
		if strings.TrimSpace(u.Doctor.LicenseNumber) == "" {
			return fmt.Errorf("%w: license number is required", ErrInvalidInput)
		}
		if u.Doctor.ExperienceYears < 0 {
			return fmt.Errorf("%w: experience years cannot be negative", ErrInvalidInput)
		}
		for _, slot := range u.Doctor.TimeSlots {
			if !ValidSlotLabel(slot) {
				return fmt.Errorf("%w: bad time slot %q", ErrInvalidInput, slot)
			}
		}
		u.Admin, u.Patient = nil, nil
	case RolePatient:
		if u.Patient == nil {
			return fmt.Errorf("%w: patient profile is required", ErrInvalidInput)
		}
		if u.Patient.Age < 0 || u.Patient.Age > 150 {
			return fmt.Errorf("%w: age out of range", ErrInvalidInput)
		}
		u.Admin, u.Doctor = nil, nil
	}
	return nil
}
