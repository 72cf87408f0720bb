package user

type ConnectWalletRequest struct {
	Address string `json:"address" validate:"required,eth_addr"`
}

type UpdateProfileRequest struct {
	Username  string `json:"username,omitempty" validate:"omitempty,min=3,max=30"`
	AvatarURL string `json:"avatarUrl,omitempty" validate:"omitempty,url"`
}
