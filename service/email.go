package service

import (
	"fmt"

	"finpalette/config"

	"gopkg.in/gomail.v2"
)

// EmailService 邮件服务
type EmailService struct {
	cfg *config.EmailConfig
}

// NewEmailService 创建邮件服务
func NewEmailService(cfg *config.EmailConfig) *EmailService {
	return &EmailService{cfg: cfg}
}

// Enabled 是否已启用邮件
func (s *EmailService) Enabled() bool {
	return s.cfg != nil && s.cfg.Enabled
}

// SendInvitationEmail 发送账本邀请邮件
func (s *EmailService) SendInvitationEmail(toEmail, inviterName, paletteName, inviteLink string) error {
	if !s.Enabled() {
		return fmt.Errorf("邮件服务未启用，请配置 FINPALETTE_EMAIL_ENABLED=true")
	}

	subject := fmt.Sprintf("【Finpalette】%s 邀请您加入「%s」", inviterName, paletteName)
	body := s.generateInvitationEmailBody(inviterName, paletteName, inviteLink)

	return s.sendEmail(toEmail, subject, body)
}

// generateInvitationEmailBody 生成邀请邮件内容
func (s *EmailService) generateInvitationEmailBody(inviterName, paletteName, inviteLink string) string {
	return fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: 'Microsoft YaHei', Arial, sans-serif; background: #f5f5f5; margin: 0; padding: 20px; }
        .container { max-width: 600px; margin: 0 auto; background: #fff; border-radius: 12px; overflow: hidden; box-shadow: 0 4px 20px rgba(0,0,0,0.1); }
        .header { background: linear-gradient(135deg, #6366f1, #4f46e5); color: white; padding: 30px; text-align: center; }
        .header h1 { margin: 0; font-size: 24px; }
        .content { padding: 40px 30px; }
        .content p { color: #333; line-height: 1.8; margin: 0 0 20px; }
        .btn { display: inline-block; background: linear-gradient(135deg, #6366f1, #4f46e5); color: white !important; text-decoration: none; padding: 14px 40px; border-radius: 8px; font-weight: 600; margin: 20px 0; }
        .warning { background: #fff3cd; border-left: 4px solid #ffc107; padding: 15px; margin: 20px 0; border-radius: 4px; }
        .warning p { margin: 0; color: #856404; font-size: 14px; }
        .footer { background: #f8f9fa; padding: 20px 30px; text-align: center; color: #6c757d; font-size: 12px; }
        .link { word-break: break-all; color: #4f46e5; font-size: 12px; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>🎨 Finpalette</h1>
        </div>
        <div class="content">
            <p><strong>%s</strong> 邀请您一起记账，加入账本「<strong>%s</strong>」。</p>
            <p style="text-align: center;">
                <a href="%s" class="btn">接受邀请</a>
            </p>
            <div class="warning">
                <p>⚠️ 邀请链接 <strong>24 小时</strong> 内有效，且只能使用一次。</p>
            </div>
            <p>如果按钮无法点击，请复制以下链接到浏览器打开：</p>
            <p class="link">%s</p>
        </div>
        <div class="footer">
            <p>此邮件由系统自动发送，请勿回复</p>
        </div>
    </div>
</body>
</html>
`, inviterName, paletteName, inviteLink, inviteLink)
}

// sendEmail 发送邮件
func (s *EmailService) sendEmail(to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", m.FormatAddress(s.cfg.Username, s.cfg.From))
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	d := gomail.NewDialer(s.cfg.Host, s.cfg.Port, s.cfg.Username, s.cfg.Password)

	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("发送邮件失败: %w", err)
	}

	return nil
}

// SendTestEmail 发送测试邮件
func (s *EmailService) SendTestEmail(toEmail string) error {
	if !s.Enabled() {
		return fmt.Errorf("邮件服务未启用")
	}

	subject := "【Finpalette】邮件配置测试"
	body := `
<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; padding: 20px;">
    <h2>✅ 邮件配置成功</h2>
    <p>如果您收到这封邮件，说明邮件服务配置正确。</p>
</body>
</html>
`
	return s.sendEmail(toEmail, subject, body)
}
