package apprunner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsiam "github.com/aws/aws-sdk-go-v2/service/iam"
	iamtypes "github.com/aws/aws-sdk-go-v2/service/iam/types"

	"github.com/shipway/shipway/internal/constants"
	"github.com/shipway/shipway/internal/deploy"
	apperrors "github.com/shipway/shipway/internal/errors"
)

// Service principals that assume the two role kinds on App Runner.
const (
	tasksPrincipal = "tasks.apprunner.amazonaws.com"
	buildPrincipal = "build.apprunner.amazonaws.com"
)

// ecrAccessPolicyArn grants the image-pull role read access to private ECR.
const ecrAccessPolicyArn = "arn:aws:iam::aws:policy/service-role/AWSAppRunnerServicePolicyForECRAccess"

// trustDocument is the IAM assume-role policy document shape.
type trustDocument struct {
	Version   string           `json:"Version"`
	Statement []trustStatement `json:"Statement"`
}

type trustStatement struct {
	Effect    string         `json:"Effect"`
	Principal trustPrincipal `json:"Principal"`
	Action    string         `json:"Action"`
}

type trustPrincipal struct {
	Service []string `json:"Service"`
}

// TrustPolicyFor returns the App Runner service principal for the role kind:
// the tasks principal runs the container, the build principal pulls images.
func (p *Platform) TrustPolicyFor(kind deploy.RoleKind) deploy.TrustPolicy {
	switch kind {
	case deploy.RoleImagePull:
		return deploy.TrustPolicy{Principals: []string{buildPrincipal}}
	default:
		return deploy.TrustPolicy{Principals: []string{tasksPrincipal}}
	}
}

// DefaultPolicyRefs returns the managed policies a role of the given kind
// needs. The execution role starts with no defaults; permissions come from
// the configured policy refs.
func (p *Platform) DefaultPolicyRefs(kind deploy.RoleKind) []string {
	if kind == deploy.RoleImagePull {
		return []string{ecrAccessPolicyArn}
	}
	return nil
}

// GetRole fetches an IAM role by name.
func (p *Platform) GetRole(ctx context.Context, name string) (*deploy.RoleDescriptor, error) {
	out, err := p.iam.GetRole(ctx, &awsiam.GetRoleInput{
		RoleName: aws.String(name),
	})
	if err != nil {
		return nil, classifyIAM("get-role", err)
	}

	return roleDescriptor(out.Role), nil
}

// CreateRole creates an IAM role with the supplied trust policy. Creation
// races with a concurrent invocation surface as EntityAlreadyExists; the
// provisioner handles that by re-fetching.
func (p *Platform) CreateRole(ctx context.Context, name string, trust deploy.TrustPolicy) (*deploy.RoleDescriptor, error) {
	doc, err := marshalTrust(trust)
	if err != nil {
		return nil, err
	}

	out, err := p.iam.CreateRole(ctx, &awsiam.CreateRoleInput{
		RoleName:                 aws.String(name),
		AssumeRolePolicyDocument: aws.String(doc),
		Description:              aws.String("Managed by " + constants.ProjectName),
		Tags: []iamtypes.Tag{
			{Key: aws.String("ManagedBy"), Value: aws.String(constants.ProjectName)},
		},
	})
	if err != nil {
		return nil, classifyIAM("create-role", err)
	}

	desc := roleDescriptor(out.Role)
	desc.Trust = trust
	return desc, nil
}

// AttachPolicy attaches one managed policy to the role. Attaching a policy
// that is already attached is a no-op on the IAM side.
func (p *Platform) AttachPolicy(ctx context.Context, roleName, policyRef string) error {
	_, err := p.iam.AttachRolePolicy(ctx, &awsiam.AttachRolePolicyInput{
		RoleName:  aws.String(roleName),
		PolicyArn: aws.String(policyRef),
	})
	if err != nil {
		return classifyIAM("attach-policy", err)
	}
	return nil
}

// ListAttachedPolicies returns the ARNs of managed policies attached to the
// role.
func (p *Platform) ListAttachedPolicies(ctx context.Context, roleName string) ([]string, error) {
	var refs []string
	var marker *string
	for {
		out, err := p.iam.ListAttachedRolePolicies(ctx, &awsiam.ListAttachedRolePoliciesInput{
			RoleName: aws.String(roleName),
			Marker:   marker,
		})
		if err != nil {
			return nil, classifyIAM("list-attached-policies", err)
		}

		for _, policy := range out.AttachedPolicies {
			refs = append(refs, aws.ToString(policy.PolicyArn))
		}

		if !out.IsTruncated {
			return refs, nil
		}
		marker = out.Marker
	}
}

// UpdateTrustPolicy replaces the assume-role policy document of an existing
// role.
func (p *Platform) UpdateTrustPolicy(ctx context.Context, roleName string, trust deploy.TrustPolicy) error {
	doc, err := marshalTrust(trust)
	if err != nil {
		return err
	}

	_, err = p.iam.UpdateAssumeRolePolicy(ctx, &awsiam.UpdateAssumeRolePolicyInput{
		RoleName:       aws.String(roleName),
		PolicyDocument: aws.String(doc),
	})
	if err != nil {
		return classifyIAM("update-trust-policy", err)
	}
	return nil
}

func marshalTrust(trust deploy.TrustPolicy) (string, error) {
	doc := trustDocument{
		Version: "2012-10-17",
		Statement: []trustStatement{
			{
				Effect:    "Allow",
				Principal: trustPrincipal{Service: trust.Principals},
				Action:    "sts:AssumeRole",
			},
		},
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("marshal trust policy: %w", err)
	}
	return string(data), nil
}

func roleDescriptor(role *iamtypes.Role) *deploy.RoleDescriptor {
	desc := &deploy.RoleDescriptor{
		Name: aws.ToString(role.RoleName),
		ID:   aws.ToString(role.Arn),
	}
	if role.AssumeRolePolicyDocument != nil {
		desc.Trust = parseTrust(*role.AssumeRolePolicyDocument)
	}
	return desc
}

// parseTrust extracts service principals from a URL-encoded assume-role
// policy document as returned by GetRole. An unparseable document yields an
// empty trust policy rather than an error; consumers repair trust explicitly.
func parseTrust(encoded string) deploy.TrustPolicy {
	raw, err := url.QueryUnescape(encoded)
	if err != nil {
		raw = encoded
	}

	var doc struct {
		Statement []struct {
			Principal struct {
				Service json.RawMessage `json:"Service"`
			} `json:"Principal"`
		} `json:"Statement"`
	}
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return deploy.TrustPolicy{}
	}

	var principals []string
	for _, stmt := range doc.Statement {
		if len(stmt.Principal.Service) == 0 {
			continue
		}
		// IAM serializes a single principal as a bare string.
		var many []string
		if err := json.Unmarshal(stmt.Principal.Service, &many); err == nil {
			principals = append(principals, many...)
			continue
		}
		var one string
		if err := json.Unmarshal(stmt.Principal.Service, &one); err == nil {
			principals = append(principals, one)
		}
	}
	return deploy.TrustPolicy{Principals: principals}
}

// classifyIAM maps IAM errors into the engine taxonomy.
func classifyIAM(step string, err error) error {
	var noSuchEntity *iamtypes.NoSuchEntityException
	if errors.As(err, &noSuchEntity) {
		return apperrors.NewNotFound("role")
	}

	return classify(step, err)
}
