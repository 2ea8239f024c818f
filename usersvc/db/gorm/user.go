package gorm

import (
	"errors"

	"github.com/ichigozero/gtdweb/usersvc"
	libgorm "gorm.io/gorm"
)

type userRepository struct {
	db *libgorm.DB
}

func NewUserRepository(db *libgorm.DB) usersvc.UserRepository {
	return &userRepository{db}
}

func (u *userRepository) Create(username, password string) (usersvc.User, error) {
	var count int64
	result := u.db.Model(&usersvc.User{}).Where("username = ?", username).Count(&count)
	if result.Error != nil {
		return usersvc.User{}, result.Error
	}
	if count > 0 {
		return usersvc.User{}, usersvc.ErrUserExists
	}

	user := usersvc.User{Username: username, Password: password}
	result = u.db.Create(&user)

	return user, result.Error
}

func (u *userRepository) FindByUsername(username string) (usersvc.User, error) {
	var user usersvc.User
	result := u.db.Where("username = ?", username).First(&user)
	if errors.Is(result.Error, libgorm.ErrRecordNotFound) {
		return usersvc.User{}, usersvc.ErrUserNotFound
	}

	return user, result.Error
}

func (u *userRepository) UpdatePassword(userID uint64, password string) error {
	result := u.db.Model(&usersvc.User{}).Where("id = ?", userID).Update("password", password)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return usersvc.ErrUserNotFound
	}

	return nil
}

func (u *userRepository) FindAll() ([]usersvc.User, error) {
	users := []usersvc.User{}
	result := u.db.Order("id").Find(&users)

	return users, result.Error
}
